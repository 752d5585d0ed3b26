package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestMapCommitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "duplicate order number",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"},
			want: ErrDuplicateOrder,
		},
		{
			name: "insufficient stock",
			err:  &pgconn.PgError{Code: "P0001", Message: "insufficient_stock:8a4f"},
			want: ErrInsufficientStock,
		},
		{
			name: "empty order",
			err:  &pgconn.PgError{Code: "P0001", Message: "empty_order"},
			want: ErrEmptyOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapCommitError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Fatal("driver error dropped from chain")
			}
		})
	}
}

func TestMapCommitError_OtherUniqueViolationPassesThrough(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	got := mapCommitError(err)
	if errors.Is(got, ErrDuplicateOrder) {
		t.Fatal("unrelated unique violation mapped to ErrDuplicateOrder")
	}
}

func TestMapCommitError_NonPgError(t *testing.T) {
	base := errors.New("conn reset")
	if got := mapCommitError(base); got != base {
		t.Fatalf("expected error unchanged, got %v", got)
	}
}

func TestDecimalNumericRoundTrip(t *testing.T) {
	n := DecimalToNumeric(decimal.RequireFromString("90.004"))
	got := NumericToDecimal(n)
	if got.StringFixed(2) != "90.00" {
		t.Fatalf("round trip: got %s, want 90.00", got.StringFixed(2))
	}

	zero := NumericToDecimal(DecimalToNumeric(decimal.Zero))
	if !zero.IsZero() {
		t.Fatalf("zero round trip: got %s", zero)
	}
}
