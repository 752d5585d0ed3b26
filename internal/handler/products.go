package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/database"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	GetProductByBarcode(ctx context.Context, barcode string) (database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
}

// ProductHandler serves scan lookups.
type ProductHandler struct {
	store ProductStore
}

func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes is mounted at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/barcode/{code}", h.GetByBarcode)
}

type productResponse struct {
	ID      uuid.UUID `json:"id"`
	Barcode string    `json:"barcode"`
	Name    string    `json:"name"`
	Price   string    `json:"price"`
	Stock   int32     `json:"stock"`
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:      p.ID,
		Barcode: p.Barcode,
		Name:    p.Name,
		Price:   database.NumericToDecimal(p.Price).StringFixed(2),
		Stock:   p.Stock,
	}
}

// GetByBarcode resolves a scanned barcode to a product with current stock.
func (h *ProductHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "barcode is required"})
		return
	}

	p, err := h.store.GetProductByBarcode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product by barcode %s: %v", code, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}
