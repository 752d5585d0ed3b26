package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/middleware"
	"github.com/scanpay/api/internal/receipt"
)

// ReceiptCache is satisfied by *receipt.Store.
type ReceiptCache interface {
	Get(ctx context.Context, orderNumber string) (receipt.Payload, error)
}

// OrderReader is satisfied by *database.Queries.
type OrderReader interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// QRCoder renders the scannable code printed on a receipt.
type QRCoder interface {
	Generate(orderNumber string) ([]byte, error)
}

// ReceiptHandler serves receipts of committed orders.
type ReceiptHandler struct {
	cache  ReceiptCache
	orders OrderReader
	qr     QRCoder
}

func NewReceiptHandler(cache ReceiptCache, orders OrderReader, qr QRCoder) *ReceiptHandler {
	return &ReceiptHandler{cache: cache, orders: orders, qr: qr}
}

// RegisterRoutes is mounted at /receipts.
func (h *ReceiptHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{orderNumber}", h.Get)
	r.Get("/{orderNumber}/qr.png", h.QR)
}

// load returns the receipt from the cache, falling back to the orders
// table once the cached copy has expired.
func (h *ReceiptHandler) load(ctx context.Context, orderNumber string) (receipt.Payload, error) {
	p, err := h.cache.Get(ctx, orderNumber)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, receipt.ErrNotFound) {
		log.Printf("WARN: receipt cache get %s: %v", orderNumber, err)
	}

	o, err := h.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return receipt.Payload{}, receipt.ErrNotFound
		}
		return receipt.Payload{}, err
	}
	items, err := h.orders.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return receipt.Payload{}, err
	}
	return receipt.FromOrder(o, items), nil
}

// authorized loads the receipt and checks it belongs to the caller. Admins
// may read any receipt. Other users' receipts look missing.
func (h *ReceiptHandler) authorized(w http.ResponseWriter, r *http.Request) (receipt.Payload, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return receipt.Payload{}, false
	}

	orderNumber := chi.URLParam(r, "orderNumber")
	p, err := h.load(r.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "receipt not found"})
			return receipt.Payload{}, false
		}
		log.Printf("ERROR: load receipt %s: %v", orderNumber, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return receipt.Payload{}, false
	}
	if p.Username != claims.Username && claims.Role != enum.UserRoleAdmin {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "receipt not found"})
		return receipt.Payload{}, false
	}
	return p, true
}

func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.authorized(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// QR returns a PNG that links back to the receipt.
func (h *ReceiptHandler) QR(w http.ResponseWriter, r *http.Request) {
	p, ok := h.authorized(w, r)
	if !ok {
		return
	}
	png, err := h.qr.Generate(p.OrderNumber)
	if err != nil {
		log.Printf("ERROR: receipt qr %s: %v", p.OrderNumber, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
