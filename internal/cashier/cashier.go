// Package cashier verifies cashier credentials for cash-mode checkouts.
package cashier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/scanpay/api/internal/database"
)

// ErrNotFound is returned when no cashier matches both fields.
var ErrNotFound = errors.New("cashier not found")

// Directory is the cashier lookup. Satisfied by *database.Queries.
type Directory interface {
	GetCashierByCredentials(ctx context.Context, arg database.GetCashierByCredentialsParams) (database.Cashier, error)
}

// Match is a verified cashier.
type Match struct {
	CashierID    string `json:"cashier_id"`
	DisplayName  string `json:"display_name"`
	PaymentCount int32  `json:"payment_count"`
}

// Verifier looks cashiers up by id + phone. It keeps no state between
// calls and never writes.
type Verifier struct {
	dir Directory
}

// NewVerifier creates a Verifier over dir.
func NewVerifier(dir Directory) *Verifier {
	return &Verifier{dir: dir}
}

// Verify returns the cashier whose id and phone both equal the input
// exactly (surrounding whitespace ignored).
func (v *Verifier) Verify(ctx context.Context, cashierID, phone string) (Match, error) {
	cashierID = strings.TrimSpace(cashierID)
	phone = strings.TrimSpace(phone)
	if cashierID == "" || phone == "" {
		return Match{}, ErrNotFound
	}

	c, err := v.dir.GetCashierByCredentials(ctx, database.GetCashierByCredentialsParams{
		CashierID: cashierID,
		Phone:     phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrNotFound
		}
		return Match{}, fmt.Errorf("lookup cashier: %w", err)
	}
	if c.CashierID != cashierID || c.Phone != phone {
		return Match{}, ErrNotFound
	}

	return Match{
		CashierID:    c.CashierID,
		DisplayName:  c.DisplayName,
		PaymentCount: c.PaymentCount,
	}, nil
}
