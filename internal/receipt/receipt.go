// Package receipt holds the receipt payload handed to the invoice screen,
// its redis-backed store, and the receipt QR code.
package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scanpay/api/internal/database"
	"github.com/skip2/go-qrcode"
)

// ErrNotFound is returned when no receipt is stored for an order number.
var ErrNotFound = errors.New("receipt not found")

// Item is one receipt line.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// Payload is the projection of a committed order the invoice renderer
// consumes. Money is formatted with 2 decimals.
type Payload struct {
	OrderNumber      string `json:"order_number"`
	Username         string `json:"username"`
	Items            []Item `json:"items"`
	Total            string `json:"total"`
	PaymentMode      string `json:"payment_mode"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	CashierName      string `json:"cashier_name,omitempty"`
	Date             string `json:"date"`
	Time             string `json:"time"`
}

// FromOrder rebuilds a payload from persisted rows.
func FromOrder(o database.Order, items []database.OrderItem) Payload {
	p := Payload{
		OrderNumber: o.OrderNumber,
		Username:    o.Username,
		Items:       make([]Item, len(items)),
		Total:       database.NumericToDecimal(o.TotalAmount).StringFixed(2),
		PaymentMode: o.PaymentMode,
	}
	for i, it := range items {
		p.Items[i] = Item{
			ID:        it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: database.NumericToDecimal(it.UnitPrice).StringFixed(2),
		}
	}
	if o.GatewayPaymentID.Valid {
		p.GatewayPaymentID = o.GatewayPaymentID.String
	}
	if o.CashierName.Valid {
		p.CashierName = o.CashierName.String
	}
	if o.OrderDate.Valid {
		p.Date = o.OrderDate.Time.Format(time.DateOnly)
	}
	if o.OrderTime.Valid {
		us := o.OrderTime.Microseconds
		p.Time = fmt.Sprintf("%02d:%02d:%02d", us/3_600_000_000, us/60_000_000%60, us/1_000_000%60)
	}
	return p
}

const keyPrefix = "receipt:"

// Store keeps receipts in redis so the invoice screen can be reloaded
// without touching the orders tables.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Store whose entries expire after ttl.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(orderNumber string) string { return keyPrefix + orderNumber }

// Save writes p under its order number.
func (s *Store) Save(ctx context.Context, p Payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return s.rdb.Set(ctx, s.key(p.OrderNumber), b, s.ttl).Err()
}

// Get loads the receipt for orderNumber.
func (s *Store) Get(ctx context.Context, orderNumber string) (Payload, error) {
	b, err := s.rdb.Get(ctx, s.key(orderNumber)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Payload{}, ErrNotFound
		}
		return Payload{}, err
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("decode receipt: %w", err)
	}
	return p, nil
}

// QRGenerator renders the QR code printed on invoices; it links back to
// the receipt endpoint.
type QRGenerator struct {
	BaseURL string
}

// Generate returns a 256px PNG.
func (g QRGenerator) Generate(orderNumber string) ([]byte, error) {
	data := fmt.Sprintf("%s/receipts/%s", g.BaseURL, url.PathEscape(orderNumber))
	return qrcode.Encode(data, qrcode.Medium, 256)
}
