package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scanpay/api/internal/cart"
	"github.com/scanpay/api/internal/cashier"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/payment"
	"github.com/scanpay/api/internal/service"
)

// Checkout is the order pipeline. Satisfied by *service.Pipeline.
type Checkout interface {
	SelectMode(s *service.Session, mode string) error
	BeginOnline(ctx context.Context, s *service.Session) (payment.Intent, error)
	CompleteOnline(ctx context.Context, s *service.Session, result payment.CheckoutResult) (service.Outcome, error)
	VerifyCashier(ctx context.Context, s *service.Session, cashierID, phone string) (cashier.Match, error)
	CommitCash(ctx context.Context, s *service.Session, cashierID, phone string) (service.Outcome, error)
}

// CheckoutHandler drives the caller's order attempt.
type CheckoutHandler struct {
	sessions      *service.Sessions
	checkout      Checkout
	lookupLimiter func(http.Handler) http.Handler
}

// NewCheckoutHandler creates a CheckoutHandler. lookupLimiter, when set,
// wraps the cashier lookup route.
func NewCheckoutHandler(sessions *service.Sessions, checkout Checkout, lookupLimiter func(http.Handler) http.Handler) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, checkout: checkout, lookupLimiter: lookupLimiter}
}

// RegisterRoutes is mounted at /checkout.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.State)
	r.Post("/mode", h.SelectMode)
	r.Post("/online", h.BeginOnline)
	r.Post("/online/complete", h.CompleteOnline)
	if h.lookupLimiter != nil {
		r.With(h.lookupLimiter).Post("/cash/cashier", h.VerifyCashier)
	} else {
		r.Post("/cash/cashier", h.VerifyCashier)
	}
	r.Post("/cash/commit", h.CommitCash)
}

// --- Request / Response types ---

type selectModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=CASH ONLINE"`
}

type cashierRequest struct {
	CashierID string `json:"cashier_id" validate:"required,max=64"`
	Phone     string `json:"phone" validate:"required,phone"`
}

type completeOnlineRequest struct {
	Status    string `json:"status" validate:"required,oneof=success cancelled failed"`
	OrderID   string `json:"razorpay_order_id" validate:"required_if=Status success"`
	PaymentID string `json:"razorpay_payment_id" validate:"required_if=Status success"`
	Signature string `json:"razorpay_signature" validate:"required_if=Status success"`
	Error     string `json:"error" validate:"max=500"`
}

type outcomeResponse struct {
	service.Outcome
	Attempt service.Attempt `json:"attempt"`
}

// --- Handlers ---

func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Attempt())
}

func (h *CheckoutHandler) SelectMode(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req selectModeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.checkout.SelectMode(s, req.Mode); err != nil {
		writeCheckoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Attempt())
}

// BeginOnline returns the gateway intent the device opens checkout with.
func (h *CheckoutHandler) BeginOnline(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	intent, err := h.checkout.BeginOnline(r.Context(), s)
	if err != nil {
		writeCheckoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *CheckoutHandler) CompleteOnline(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req completeOnlineRequest
	if !decodeValid(w, r, &req) {
		return
	}
	out, err := h.checkout.CompleteOnline(r.Context(), s, payment.CheckoutResult{
		Status:    req.Status,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Error:     req.Error,
	})
	if err != nil {
		writeCheckoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: out, Attempt: s.Attempt()})
}

// VerifyCashier is called as the cashier fills the form; clients debounce
// and the route is rate limited per user.
func (h *CheckoutHandler) VerifyCashier(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req cashierRequest
	if !decodeValid(w, r, &req) {
		return
	}
	m, err := h.checkout.VerifyCashier(r.Context(), s, req.CashierID, req.Phone)
	if err != nil {
		writeCheckoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cashier": m,
		"attempt": s.Attempt(),
	})
}

func (h *CheckoutHandler) CommitCash(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req cashierRequest
	if !decodeValid(w, r, &req) {
		return
	}
	out, err := h.checkout.CommitCash(r.Context(), s, req.CashierID, req.Phone)
	if err != nil {
		writeCheckoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcomeResponse{Outcome: out, Attempt: s.Attempt()})
}

// writeCheckoutError turns pipeline errors into a user message. Raw causes
// are only logged.
func writeCheckoutError(w http.ResponseWriter, s *service.Session, err error) {
	var pe *service.PipelineError
	var sl *cart.StockLimitError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, pipelineStatus(pe.Reason), map[string]interface{}{
			"error":   pe.UserMessage(),
			"reason":  pe.Reason,
			"attempt": s.Attempt(),
		})
	case errors.As(err, &sl):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": sl.Error(), "available": sl.Available})
	case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, service.ErrInvalidMode):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, cashier.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "no cashier matches that id and phone", "attempt": s.Attempt()})
	case errors.Is(err, service.ErrCashierNotVerified),
		errors.Is(err, service.ErrWrongState),
		errors.Is(err, service.ErrAttemptInFlight),
		errors.Is(err, service.ErrCartLocked):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": err.Error(), "attempt": s.Attempt()})
	default:
		log.Printf("ERROR: checkout user=%s: %v", s.Username, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func pipelineStatus(reason string) int {
	switch reason {
	case enum.FailureGatewaySetup:
		return http.StatusBadGateway
	case enum.FailurePaymentFailed:
		return http.StatusPaymentRequired
	case enum.FailureVerificationFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusConflict
}
