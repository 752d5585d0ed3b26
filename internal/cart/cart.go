// Package cart holds a shopper's line items between scanning and checkout.
//
// A Cart is owned by one checkout session and injected wherever it is
// needed; there is no package-level cart. At every observation point the
// cart holds at most one entry per product id and every quantity is > 0.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by cart operations.
var (
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidProductID = errors.New("invalid product id")
	ErrItemNotFound     = errors.New("item not in cart")
	ErrStockLimit       = errors.New("quantity exceeds stock")
	ErrEmptyCart        = errors.New("cart is empty")
)

// StockLimitError reports a quantity request above the known stock. It
// matches ErrStockLimit with errors.Is.
type StockLimitError struct {
	ProductID string
	Name      string
	Requested int32
	Available int32
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("only %d of %s in stock (requested %d)", e.Available, e.Name, e.Requested)
}

func (e *StockLimitError) Is(target error) bool { return target == ErrStockLimit }

// Item is one cart line. Stock is the last-known inventory count; nil
// means it has not been looked up yet.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int32
	Stock     *int32
}

// LineTotal is UnitPrice × Quantity, unrounded.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

func (i Item) clone() Item {
	if i.Stock != nil {
		s := *i.Stock
		i.Stock = &s
	}
	return i
}

// StockSource returns current stock per product id. Ids it does not know
// may simply be absent from the result.
type StockSource interface {
	ProductStocks(ctx context.Context, productIDs []string) (map[string]int32, error)
}

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// ValidProductID reports whether id is a well-formed product identifier.
func ValidProductID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// AddOrMerge appends item, or adds its quantity to the existing entry for
// the same product. A stock snapshot on item replaces the stored one.
// Exceeding known stock is rejected with *StockLimitError and leaves the
// cart unchanged.
func (c *Cart) AddOrMerge(item Item) error {
	if !ValidProductID(item.ProductID) {
		return ErrInvalidProductID
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(item.ProductID)
	if idx < 0 {
		if item.Stock != nil && item.Quantity > *item.Stock {
			return &StockLimitError{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity, Available: *item.Stock}
		}
		c.items = append(c.items, item.clone())
		return nil
	}

	existing := c.items[idx]
	merged := existing.Quantity + item.Quantity
	stock := existing.Stock
	if item.Stock != nil {
		stock = item.Stock
	}
	if stock != nil && merged > *stock {
		return &StockLimitError{ProductID: item.ProductID, Name: item.Name, Requested: merged, Available: *stock}
	}

	updated := item.clone()
	updated.Quantity = merged
	if updated.Stock == nil {
		updated.Stock = existing.clone().Stock
	}
	c.items[idx] = updated
	return nil
}

// SetQuantity replaces a line's quantity. qty <= 0 removes the line.
func (c *Cart) SetQuantity(productID string, qty int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		return nil
	}
	item := c.items[idx]
	if item.Stock != nil && qty > *item.Stock {
		return &StockLimitError{ProductID: productID, Name: item.Name, Requested: qty, Available: *item.Stock}
	}
	c.items[idx].Quantity = qty
	return nil
}

// Remove drops a line.
func (c *Cart) Remove(productID string) error {
	return c.SetQuantity(productID, 0)
}

// Consolidate merges entries sharing a product id (summing quantities, in
// first-seen order) and drops entries with a malformed id or a
// non-positive quantity. It returns how many entries were dropped.
func (c *Cart) Consolidate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	discarded := 0
	index := make(map[string]int, len(c.items))
	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		if !ValidProductID(item.ProductID) || item.Quantity <= 0 {
			discarded++
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			if item.Stock != nil {
				out[i].Stock = item.clone().Stock
			}
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item.clone())
	}
	c.items = out
	return discarded
}

// RefreshStock overwrites every line's stock snapshot from src. Lines src
// does not report get stock 0 so checkout cannot proceed on unknown stock.
func (c *Cart) RefreshStock(ctx context.Context, src StockSource) error {
	c.mu.Lock()
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.ProductID
	}
	c.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	stocks, err := src.ProductStocks(ctx, ids)
	if err != nil {
		return fmt.Errorf("lookup stock: %w", err)
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		id := c.items[i].ProductID
		if !requested[id] {
			continue
		}
		s := stocks[id]
		c.items[i].Stock = &s
	}
	return nil
}

// CheckStock verifies the checkout precondition: a non-empty cart where
// every quantity is within its stock snapshot. Unknown stock counts as 0.
func (c *Cart) CheckStock() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range c.items {
		var available int32
		if item.Stock != nil {
			available = *item.Stock
		}
		if item.Quantity > available {
			return &StockLimitError{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity, Available: available}
		}
	}
	return nil
}

// Clear empties the cart. Only the order pipeline calls this, after a
// committed order.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Snapshot returns a deep copy of the lines.
func (c *Cart) Snapshot() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Item, len(c.items))
	for i, item := range c.items {
		out[i] = item.clone()
	}
	return out
}

// Restore replaces the contents verbatim, without consolidating.
func (c *Cart) Restore(items []Item) {
	cp := make([]Item, len(items))
	for i, item := range items {
		cp[i] = item.clone()
	}
	c.mu.Lock()
	c.items = cp
	c.mu.Unlock()
}

// Total sums all lines and rounds to 2 decimal places.
func (c *Cart) Total() decimal.Decimal {
	return Total(c.Snapshot())
}

// Len is the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Total sums items and rounds to 2 decimal places.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}

func (c *Cart) indexOf(productID string) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
