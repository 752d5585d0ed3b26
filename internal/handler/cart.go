package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/cart"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/service"
)

// CartHandler exposes the caller's session cart.
type CartHandler struct {
	sessions  *service.Sessions
	products  ProductStore
	stock     cart.StockSource
	scanGuard func(http.Handler) http.Handler
}

// NewCartHandler creates a CartHandler. scanGuard, when set, wraps the
// add-item route (the geofence gate in production).
func NewCartHandler(sessions *service.Sessions, products ProductStore, stock cart.StockSource, scanGuard func(http.Handler) http.Handler) *CartHandler {
	return &CartHandler{sessions: sessions, products: products, stock: stock, scanGuard: scanGuard}
}

// RegisterRoutes is mounted at /cart.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	if h.scanGuard != nil {
		r.With(h.scanGuard).Post("/items", h.AddItem)
	} else {
		r.Post("/items", h.AddItem)
	}
	r.Patch("/items/{pid}", h.SetQuantity)
	r.Delete("/items/{pid}", h.Remove)
	r.Post("/refresh-stock", h.RefreshStock)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"min=1,max=999"`
}

type setQuantityRequest struct {
	Quantity *int32 `json:"quantity" validate:"required,min=0,max=999"`
}

type cartItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
	Stock     *int32 `json:"stock"`
	LineTotal string `json:"line_total"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total string             `json:"total"`
	// StockIssue is set when a line exceeds its last known stock.
	StockIssue string `json:"stock_issue,omitempty"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Snapshot()
	resp := cartResponse{Items: make([]cartItemResponse, len(items)), Total: cart.Total(items).StringFixed(2)}
	for i, it := range items {
		resp.Items[i] = cartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			Stock:     it.Stock,
			LineTotal: it.LineTotal().StringFixed(2),
		}
	}
	return resp
}

// --- Handlers ---

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(s.Cart))
}

// AddItem adds a scanned product, merging with an existing line. Name,
// price and stock always come from the product table.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeValid(w, r, &req) {
		return
	}

	p, err := h.products.GetProduct(r.Context(), uuid.MustParse(req.ProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product %s: %v", req.ProductID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	stock := p.Stock
	err = s.EditCart(func(c *cart.Cart) error {
		return c.AddOrMerge(cart.Item{
			ProductID: p.ID.String(),
			Name:      p.Name,
			UnitPrice: database.NumericToDecimal(p.Price),
			Quantity:  req.Quantity,
			Stock:     &stock,
		})
	})
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(s.Cart))
}

// SetQuantity sets a line's quantity; 0 removes it.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req setQuantityRequest
	if !decodeValid(w, r, &req) {
		return
	}
	pid := chi.URLParam(r, "pid")
	if err := s.EditCart(func(c *cart.Cart) error { return c.SetQuantity(pid, *req.Quantity) }); err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(s.Cart))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	pid := chi.URLParam(r, "pid")
	if err := s.EditCart(func(c *cart.Cart) error { return c.Remove(pid) }); err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(s.Cart))
}

// RefreshStock reloads stock snapshots and reports the first line that no
// longer fits.
func (h *CartHandler) RefreshStock(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	if err := s.Cart.RefreshStock(r.Context(), h.stock); err != nil {
		log.Printf("ERROR: refresh stock user=%s: %v", s.Username, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := toCartResponse(s.Cart)
	if err := s.Cart.CheckStock(); errors.Is(err, cart.ErrStockLimit) {
		resp.StockIssue = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeCartError(w http.ResponseWriter, err error) {
	var sl *cart.StockLimitError
	switch {
	case errors.As(err, &sl):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     sl.Error(),
			"available": sl.Available,
		})
	case errors.Is(err, service.ErrCartLocked):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidProductID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
