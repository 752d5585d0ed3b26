package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/database"
)

// CashierStore is satisfied by *database.Queries.
type CashierStore interface {
	GetCashierByCashierID(ctx context.Context, cashierID string) (database.Cashier, error)
}

// CashierHandler serves admin cashier lookups.
type CashierHandler struct {
	store CashierStore
}

func NewCashierHandler(store CashierStore) *CashierHandler {
	return &CashierHandler{store: store}
}

// RegisterRoutes is mounted at /admin/cashiers.
func (h *CashierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{cashierID}", h.Get)
}

type cashierResponse struct {
	CashierID    string `json:"cashier_id"`
	DisplayName  string `json:"display_name"`
	PaymentCount int32  `json:"payment_count"`
}

func (h *CashierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cashierID")
	c, err := h.store.GetCashierByCashierID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cashier not found"})
			return
		}
		log.Printf("ERROR: get cashier %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, cashierResponse{
		CashierID:    c.CashierID,
		DisplayName:  c.DisplayName,
		PaymentCount: c.PaymentCount,
	})
}
