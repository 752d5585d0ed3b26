package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scanpay/api/internal/payment"
	"github.com/shopspring/decimal"
)

// IntentCreator is satisfied by *payment.Razorpay.
type IntentCreator interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (payment.Intent, error)
}

// PaymentHandler exposes the raw gateway endpoints: intent creation and
// signature verification. The checkout routes use the same pieces through
// the order pipeline.
type PaymentHandler struct {
	gateway IntentCreator
	secret  string
}

func NewPaymentHandler(gateway IntentCreator, secret string) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, secret: secret}
}

// RegisterRoutes is mounted at /payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/intent", h.CreateIntent)
	r.Post("/verify", h.Verify)
}

type intentRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// CreateIntent takes an amount in rupees and returns the gateway order.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: map[string]string{"amount": "must be a positive amount with at most 2 decimals"},
		})
		return
	}

	intent, err := h.gateway.CreateOrder(r.Context(), amount, "rcpt_"+uuid.NewString()[:8])
	if err != nil {
		log.Printf("ERROR: create payment intent: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not create payment order"})
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// Verify checks a gateway signature. It never errors on a bad signature,
// it answers verified=false.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeValid(w, r, &req) {
		return
	}
	ok := payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature, h.secret)
	writeJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}
