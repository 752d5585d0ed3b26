package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors mapped from the commit_order procedure.
var (
	ErrDuplicateOrder    = errors.New("order number already committed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyOrder        = errors.New("order has no items")
)

const orderNumberConstraint = "orders_order_number_key"

// CommitOrderItem is one line passed to commit_order as JSONB.
type CommitOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
}

// CommitOrderParams are the commit_order arguments in procedure order.
// Exactly one of {GatewayPaymentID+GatewaySignature, CashierName} is valid,
// matching PaymentMode; the table CHECK rejects anything else.
type CommitOrderParams struct {
	OrderNumber      string
	Username         string
	TotalAmount      pgtype.Numeric
	Items            []CommitOrderItem
	PaymentMode      string
	OrderTime        string // 15:04:05
	OrderDate        string // 2006-01-02
	GatewayPaymentID pgtype.Text
	CashierName      pgtype.Text
	GatewaySignature pgtype.Text
}

// CommittedOrder is what the store assigns on a successful commit.
type CommittedOrder struct {
	ID          uuid.UUID
	OrderNumber string
	CreatedAt   time.Time
}

const commitOrder = `SELECT out_order_id, out_created_at
FROM commit_order($1, $2, $3, $4::jsonb, $5, $6::time, $7::date, $8, $9, $10)
`

// CommitOrder runs the atomic commit_order procedure. The whole call is one
// statement, so any failure leaves no order, no lines and no stock change.
func (q *Queries) CommitOrder(ctx context.Context, arg CommitOrderParams) (CommittedOrder, error) {
	lines := arg.Items
	if lines == nil {
		lines = []CommitOrderItem{}
	}
	items, err := json.Marshal(lines)
	if err != nil {
		return CommittedOrder{}, fmt.Errorf("encode items: %w", err)
	}

	row := q.db.QueryRow(ctx, commitOrder,
		arg.OrderNumber,
		arg.Username,
		arg.TotalAmount,
		string(items),
		arg.PaymentMode,
		arg.OrderTime,
		arg.OrderDate,
		arg.GatewayPaymentID,
		arg.CashierName,
		arg.GatewaySignature,
	)

	out := CommittedOrder{OrderNumber: arg.OrderNumber}
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return CommittedOrder{}, mapCommitError(err)
	}
	return out, nil
}

// mapCommitError turns procedure failures into package sentinels while
// keeping the driver error in the chain.
func mapCommitError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23505" && pgErr.ConstraintName == orderNumberConstraint:
		return fmt.Errorf("%w: %w", ErrDuplicateOrder, err)
	case pgErr.Code == "P0001" && strings.HasPrefix(pgErr.Message, "insufficient_stock"):
		return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	case pgErr.Code == "P0001" && pgErr.Message == "empty_order":
		return fmt.Errorf("%w: %w", ErrEmptyOrder, err)
	}
	return err
}

// NumericToDecimal converts a NUMERIC column to a decimal; invalid or NULL
// values read as zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric rounds to 2 places before encoding, the precision of
// every money column.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
