package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scanpay/api/internal/enum"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for non-positive intent amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Intent is a gateway-side order the device opens the checkout UI with.
type Intent struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	KeyID    string          `json:"key_id"`
}

// CheckoutResult is what the device reports when the checkout UI closes.
type CheckoutResult struct {
	Status    string `json:"status"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	Error     string `json:"error"`
}

// Cancelled reports a user-closed checkout.
func (r CheckoutResult) Cancelled() bool { return r.Status == enum.CheckoutCancelled }

// Razorpay creates orders through the Razorpay REST API.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpay creates a client. A nil client gets a 15s timeout default.
func NewRazorpay(baseURL, keyID, keySecret string, client *http.Client) *Razorpay {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Razorpay{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client:    client,
	}
}

// KeySecret is the HMAC secret gateway signatures are verified against.
func (r *Razorpay) KeySecret() string { return r.keySecret }

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder requests a gateway order for amount rupees. The amount is
// rounded to 2 places and sent in paise.
func (r *Razorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (Intent, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return Intent{}, ErrInvalidAmount
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   amount.Shift(2).IntPart(),
		Currency: enum.CurrencyINR,
		Receipt:  receipt,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Intent{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("create gateway order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Intent{}, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return Intent{}, fmt.Errorf("gateway returned %d: %s %s", resp.StatusCode, e.Error.Code, e.Error.Description)
	}

	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Intent{}, fmt.Errorf("decode gateway order: %w", err)
	}
	if out.ID == "" {
		return Intent{}, errors.New("gateway order has no id")
	}

	return Intent{
		ID:       out.ID,
		Amount:   decimal.NewFromInt(out.Amount).Shift(-2),
		Currency: out.Currency,
		Receipt:  out.Receipt,
		KeyID:    r.keyID,
	}, nil
}
