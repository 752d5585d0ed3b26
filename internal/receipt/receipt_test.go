package receipt

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/scanpay/api/internal/database"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func samplePayload() Payload {
	return Payload{
		OrderNumber:      "order_ABC",
		Username:         "asha",
		Items:            []Item{{ID: uuid.NewString(), Name: "Soap", Quantity: 2, UnitPrice: "45.00"}},
		Total:            "90.00",
		PaymentMode:      "ONLINE",
		GatewayPaymentID: "pay_1",
		Date:             "2026-10-15",
		Time:             "18:30:05",
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	p := samplePayload()

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, p.OrderNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Total != "90.00" || len(got.Items) != 1 || got.Items[0].Name != "Soap" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStore_Missing(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Expires(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	_ = s.Save(ctx, samplePayload())

	mr.FastForward(2 * time.Minute)

	if _, err := s.Get(ctx, "order_ABC"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestFromOrder(t *testing.T) {
	var total pgtype.Numeric
	_ = total.Scan("90.00")
	productID := uuid.New()

	o := database.Order{
		OrderNumber: "CASH-1",
		Username:    "asha",
		TotalAmount: total,
		PaymentMode: "CASH",
		OrderDate:   pgtype.Date{Time: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), Valid: true},
		OrderTime:   pgtype.Time{Microseconds: (18*3600 + 30*60 + 5) * 1_000_000, Valid: true},
		CashierName: pgtype.Text{String: "Ravi", Valid: true},
	}
	items := []database.OrderItem{{
		ProductID: productID,
		Name:      "Soap",
		Quantity:  2,
		UnitPrice: database.DecimalToNumeric(decimal.RequireFromString("45")),
	}}

	p := FromOrder(o, items)
	if p.Total != "90.00" || p.CashierName != "Ravi" || p.GatewayPaymentID != "" {
		t.Errorf("payload: %+v", p)
	}
	if p.Date != "2026-10-15" || p.Time != "18:30:05" {
		t.Errorf("date/time: got %s %s", p.Date, p.Time)
	}
	if p.Items[0].ID != productID.String() || p.Items[0].UnitPrice != "45.00" {
		t.Errorf("item: %+v", p.Items[0])
	}
}

func TestQRGenerator(t *testing.T) {
	png, err := QRGenerator{BaseURL: "https://shop.example"}.Generate("order_ABC")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
}
