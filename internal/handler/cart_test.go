package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/auth"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/handler"
	"github.com/scanpay/api/internal/middleware"
	"github.com/scanpay/api/internal/service"
	"github.com/shopspring/decimal"
)

// --- Mock stores ---

type mockProductStore struct {
	products map[uuid.UUID]database.Product
}

func newMockProductStore(products ...database.Product) *mockProductStore {
	m := &mockProductStore{products: make(map[uuid.UUID]database.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductStore) GetProductByBarcode(_ context.Context, barcode string) (database.Product, error) {
	for _, p := range m.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProductStore) ProductStocks(_ context.Context, ids []string) (map[string]int32, error) {
	out := make(map[string]int32)
	for _, id := range ids {
		pid, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if p, ok := m.products[pid]; ok {
			out[id] = p.Stock
		}
	}
	return out, nil
}

// --- Helpers ---

func testProduct(name, price string, stock int32) database.Product {
	return database.Product{
		ID:      uuid.New(),
		Barcode: "890" + name,
		Name:    name,
		Price:   database.DecimalToNumeric(decimal.RequireFromString(price)),
		Stock:   stock,
	}
}

func customer(username string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Username: username, Role: enum.UserRoleCustomer}
}

// sendAs issues a request carrying claims the way Authenticate would.
func sendAs(t *testing.T, router http.Handler, claims *auth.Claims, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func cartRouter(sessions *service.Sessions, store *mockProductStore, guard func(http.Handler) http.Handler) chi.Router {
	h := handler.NewCartHandler(sessions, store, store, guard)
	r := chi.NewRouter()
	r.Route("/cart", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCart_AddItemMerges(t *testing.T) {
	soap := testProduct("Soap", "45.00", 10)
	store := newMockProductStore(soap)
	sessions := service.NewSessions()
	router := cartRouter(sessions, store, nil)
	asha := customer("asha")

	for i := 0; i < 2; i++ {
		rr := sendAs(t, router, asha, "POST", "/cart/items", map[string]interface{}{
			"product_id": soap.ID.String(),
			"quantity":   1,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("add %d: status %d; body: %s", i, rr.Code, rr.Body.String())
		}
	}

	rr := sendAs(t, router, asha, "GET", "/cart/", nil)
	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	if line["quantity"] != float64(2) || line["line_total"] != "90.00" {
		t.Errorf("line: %+v", line)
	}
	if resp["total"] != "90.00" {
		t.Errorf("total: got %v", resp["total"])
	}
}

func TestCart_AddOverStock(t *testing.T) {
	soap := testProduct("Soap", "45.00", 1)
	router := cartRouter(service.NewSessions(), newMockProductStore(soap), nil)

	rr := sendAs(t, router, customer("asha"), "POST", "/cart/items", map[string]interface{}{
		"product_id": soap.ID.String(),
		"quantity":   3,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["available"] != float64(1) {
		t.Errorf("available: got %v", resp["available"])
	}
}

func TestCart_AddUnknownProduct(t *testing.T) {
	router := cartRouter(service.NewSessions(), newMockProductStore(), nil)
	rr := sendAs(t, router, customer("asha"), "POST", "/cart/items", map[string]interface{}{
		"product_id": uuid.NewString(),
		"quantity":   1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestCart_AddValidation(t *testing.T) {
	router := cartRouter(service.NewSessions(), newMockProductStore(), nil)
	tests := []map[string]interface{}{
		{"product_id": "not-a-uuid", "quantity": 1},
		{"product_id": uuid.NewString(), "quantity": 0},
		{"quantity": 1},
	}
	for _, body := range tests {
		rr := sendAs(t, router, customer("asha"), "POST", "/cart/items", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: status %d, want 400", body, rr.Code)
		}
	}
}

func TestCart_RequiresClaims(t *testing.T) {
	router := cartRouter(service.NewSessions(), newMockProductStore(), nil)
	rr := sendAs(t, router, nil, "GET", "/cart/", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	soap := testProduct("Soap", "45.00", 10)
	router := cartRouter(service.NewSessions(), newMockProductStore(soap), nil)
	asha := customer("asha")

	sendAs(t, router, asha, "POST", "/cart/items", map[string]interface{}{"product_id": soap.ID.String(), "quantity": 2})
	rr := sendAs(t, router, asha, "PATCH", "/cart/items/"+soap.ID.String(), map[string]interface{}{"quantity": 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if items := decodeResponse(t, rr)["items"].([]interface{}); len(items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(items))
	}
}

func TestCart_RemoveMissing(t *testing.T) {
	router := cartRouter(service.NewSessions(), newMockProductStore(), nil)
	rr := sendAs(t, router, customer("asha"), "DELETE", "/cart/items/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	soap := testProduct("Soap", "45.00", 10)
	router := cartRouter(service.NewSessions(), newMockProductStore(soap), nil)

	sendAs(t, router, customer("asha"), "POST", "/cart/items", map[string]interface{}{"product_id": soap.ID.String(), "quantity": 1})
	rr := sendAs(t, router, customer("ravi"), "GET", "/cart/", nil)
	if items := decodeResponse(t, rr)["items"].([]interface{}); len(items) != 0 {
		t.Fatalf("ravi sees asha's cart: %v", items)
	}
}

func TestCart_RefreshStockReportsShortage(t *testing.T) {
	soap := testProduct("Soap", "45.00", 5)
	store := newMockProductStore(soap)
	router := cartRouter(service.NewSessions(), store, nil)
	asha := customer("asha")

	sendAs(t, router, asha, "POST", "/cart/items", map[string]interface{}{"product_id": soap.ID.String(), "quantity": 4})

	soap.Stock = 2
	store.products[soap.ID] = soap

	rr := sendAs(t, router, asha, "POST", "/cart/refresh-stock", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["stock_issue"] == nil || resp["stock_issue"] == "" {
		t.Fatalf("expected stock_issue, got %+v", resp)
	}
	line := resp["items"].([]interface{})[0].(map[string]interface{})
	if line["stock"] != float64(2) {
		t.Errorf("stock snapshot: got %v", line["stock"])
	}
}

func TestCart_ScanGuardBlocksAdd(t *testing.T) {
	soap := testProduct("Soap", "45.00", 10)
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	router := cartRouter(service.NewSessions(), newMockProductStore(soap), deny)
	asha := customer("asha")

	rr := sendAs(t, router, asha, "POST", "/cart/items", map[string]interface{}{"product_id": soap.ID.String(), "quantity": 1})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rr.Code)
	}
	if rr := sendAs(t, router, asha, "GET", "/cart/", nil); rr.Code != http.StatusOK {
		t.Fatalf("reads should not be guarded, got %d", rr.Code)
	}
}
