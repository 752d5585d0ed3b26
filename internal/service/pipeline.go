package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanpay/api/internal/cart"
	"github.com/scanpay/api/internal/cashier"
	"github.com/scanpay/api/internal/database"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/events"
	"github.com/scanpay/api/internal/metrics"
	"github.com/scanpay/api/internal/payment"
	"github.com/scanpay/api/internal/receipt"
	"github.com/shopspring/decimal"
)

// Errors returned by the pipeline outside a failed attempt.
var (
	ErrInvalidMode        = errors.New("invalid payment mode")
	ErrWrongState         = errors.New("not allowed in the current checkout state")
	ErrAttemptInFlight    = errors.New("an order attempt is already in progress")
	ErrCartLocked         = errors.New("cart cannot change while a payment is open")
	ErrCashierNotVerified = errors.New("cashier not verified for these credentials")
)

// Sentinels matched by *PipelineError according to its Reason.
var (
	ErrGatewaySetup       = errors.New("payment setup failed")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrCommit             = errors.New("order commit failed")

	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrAmountMismatch    = errors.New("cart total differs from the paid amount")
)

// PipelineError ends an attempt in FAILED. The cart is always left as it
// was before the attempt.
type PipelineError struct {
	Reason string
	Mode   string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", strings.ToLower(e.Reason), e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func (e *PipelineError) Is(target error) bool {
	switch e.Reason {
	case enum.FailureGatewaySetup:
		return target == ErrGatewaySetup
	case enum.FailurePaymentFailed:
		return target == ErrPaymentFailed
	case enum.FailureVerificationFailed:
		return target == ErrVerificationFailed
	case enum.FailureCommit:
		return target == ErrCommit
	}
	return false
}

// UserMessage is safe to show the shopper. Only stock-limit problems carry
// detail; everything else is generic.
func (e *PipelineError) UserMessage() string {
	var sl *cart.StockLimitError
	switch e.Reason {
	case enum.FailureGatewaySetup:
		return "Could not start the payment. Please try again."
	case enum.FailurePaymentFailed:
		return "Payment did not go through. Please try again."
	case enum.FailureVerificationFailed:
		return "We could not verify your payment. If you were charged, please contact support."
	}
	msg := "Transaction rolled back. Your cart has been kept."
	if errors.As(e.Err, &sl) {
		msg = sl.Error() + ". " + msg
	}
	if e.Mode == enum.PaymentModeOnline {
		msg += " If you were charged, please contact support."
	}
	return msg
}

// Gateway creates remote payment intents. Satisfied by *payment.Razorpay.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (payment.Intent, error)
}

// CashierVerifier is satisfied by *cashier.Verifier.
type CashierVerifier interface {
	Verify(ctx context.Context, cashierID, phone string) (cashier.Match, error)
}

// OrderStore is the persistence the pipeline writes through. Satisfied by
// *database.Queries.
type OrderStore interface {
	cart.StockSource
	CommitOrder(ctx context.Context, arg database.CommitOrderParams) (database.CommittedOrder, error)
	IncrementCashierPaymentCount(ctx context.Context, cashierID string) (database.Cashier, error)
}

// ReceiptSaver is satisfied by *receipt.Store.
type ReceiptSaver interface {
	Save(ctx context.Context, p receipt.Payload) error
}

// Config wires a Pipeline. Receipts and Notifier may be nil.
type Config struct {
	Store         OrderStore
	Gateway       Gateway
	GatewaySecret string
	Cashiers      CashierVerifier
	Receipts      ReceiptSaver
	Notifier      events.Notifier
	CallTimeout   time.Duration
	Location      *time.Location
	Now           func() time.Time
}

// Pipeline drives an order attempt from payment-mode selection to commit.
type Pipeline struct {
	store    OrderStore
	gateway  Gateway
	secret   string
	cashiers CashierVerifier
	receipts ReceiptSaver
	notifier events.Notifier
	timeout  time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewPipeline(cfg Config) *Pipeline {
	p := &Pipeline{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		secret:   cfg.GatewaySecret,
		cashiers: cfg.Cashiers,
		receipts: cfg.Receipts,
		notifier: cfg.Notifier,
		timeout:  cfg.CallTimeout,
		loc:      cfg.Location,
		now:      cfg.Now,
	}
	if p.timeout <= 0 {
		p.timeout = 15 * time.Second
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// PendingOrder is the order handed to the atomic commit. Exactly one of
// the gateway pair or CashierName is set, matching Mode.
type PendingOrder struct {
	OrderNumber      string
	Username         string
	TotalAmount      decimal.Decimal
	Items            []cart.Item
	Mode             string
	OrderDate        string
	OrderTime        string
	GatewayPaymentID string
	GatewaySignature string
	CashierName      string
}

func (o PendingOrder) params() (database.CommitOrderParams, error) {
	items := make([]database.CommitOrderItem, len(o.Items))
	for i, it := range o.Items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			return database.CommitOrderParams{}, fmt.Errorf("item %d: %w", i, cart.ErrInvalidProductID)
		}
		items[i] = database.CommitOrderItem{
			ProductID: id,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	arg := database.CommitOrderParams{
		OrderNumber: o.OrderNumber,
		Username:    o.Username,
		TotalAmount: database.DecimalToNumeric(o.TotalAmount),
		Items:       items,
		PaymentMode: o.Mode,
		OrderTime:   o.OrderTime,
		OrderDate:   o.OrderDate,
	}
	if o.Mode == enum.PaymentModeOnline {
		arg.GatewayPaymentID = pgtype.Text{String: o.GatewayPaymentID, Valid: true}
		arg.GatewaySignature = pgtype.Text{String: o.GatewaySignature, Valid: true}
	} else {
		arg.CashierName = pgtype.Text{String: o.CashierName, Valid: true}
	}
	return arg, nil
}

// Receipt projects the order onto the invoice payload.
func (o PendingOrder) Receipt() receipt.Payload {
	p := receipt.Payload{
		OrderNumber:      o.OrderNumber,
		Username:         o.Username,
		Items:            make([]receipt.Item, len(o.Items)),
		Total:            o.TotalAmount.StringFixed(2),
		PaymentMode:      o.Mode,
		GatewayPaymentID: o.GatewayPaymentID,
		CashierName:      o.CashierName,
		Date:             o.OrderDate,
		Time:             o.OrderTime,
	}
	for i, it := range o.Items {
		p.Items[i] = receipt.Item{
			ID:        it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return p
}

// Outcome is the end of a successful or cancelled attempt.
type Outcome struct {
	Cancelled bool             `json:"cancelled"`
	OrderID   *uuid.UUID       `json:"order_id,omitempty"`
	Receipt   *receipt.Payload `json:"receipt,omitempty"`
}

// SelectMode starts a new attempt in the given mode.
func (p *Pipeline) SelectMode(s *Session, mode string) error {
	if !enum.ValidPaymentMode(mode) {
		return ErrInvalidMode
	}
	if err := s.begin(func(a *attempt) error {
		if a.intentOutstanding() || a.state == enum.AttemptCommitting {
			return ErrAttemptInFlight
		}
		return nil
	}); err != nil {
		return err
	}

	if n := s.Cart.Consolidate(); n > 0 {
		log.Printf("WARN: checkout user=%s: discarded %d malformed cart lines", s.Username, n)
	}
	if s.Cart.Len() == 0 {
		s.finish(nil)
		return cart.ErrEmptyCart
	}
	s.finish(func(a *attempt) {
		*a = attempt{state: enum.AttemptModeSelected, mode: mode}
	})
	return nil
}

// BeginOnline creates the gateway intent for the current cart total. The
// cart stays locked until CompleteOnline.
func (p *Pipeline) BeginOnline(ctx context.Context, s *Session) (payment.Intent, error) {
	if err := s.begin(func(a *attempt) error {
		if a.mode != enum.PaymentModeOnline || a.state != enum.AttemptModeSelected {
			return ErrWrongState
		}
		return nil
	}); err != nil {
		return payment.Intent{}, err
	}

	if err := p.refreshStock(ctx, s); err != nil {
		return payment.Intent{}, p.fail(s, enum.FailureGatewaySetup, "", err)
	}
	if err := s.Cart.CheckStock(); err != nil {
		// Recoverable: the shopper fixes quantities and retries.
		s.finish(nil)
		return payment.Intent{}, err
	}

	total := s.Cart.Total()
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	intent, err := p.gateway.CreateOrder(callCtx, total, "rcpt_"+uuid.NewString()[:8])
	cancel()
	if err != nil {
		return payment.Intent{}, p.fail(s, enum.FailureGatewaySetup, "", err)
	}
	intent.Amount = total

	s.finish(func(a *attempt) {
		a.state = enum.AttemptAwaitingVerification
		a.intent = &intent
	})
	return intent, nil
}

// CompleteOnline consumes the result posted back by the checkout UI.
// A cancelled checkout returns to MODE_SELECTED and is not an error.
func (p *Pipeline) CompleteOnline(ctx context.Context, s *Session, result payment.CheckoutResult) (Outcome, error) {
	var intent payment.Intent
	if err := s.begin(func(a *attempt) error {
		if !a.intentOutstanding() || a.intent == nil {
			return ErrWrongState
		}
		intent = *a.intent
		return nil
	}); err != nil {
		return Outcome{}, err
	}

	switch {
	case result.Cancelled():
		s.finish(func(a *attempt) {
			a.state = enum.AttemptModeSelected
			a.intent = nil
		})
		metrics.Outcome(enum.PaymentModeOnline, enum.CheckoutCancelled)
		return Outcome{Cancelled: true}, nil
	case result.Status != enum.CheckoutSuccess:
		return Outcome{}, p.fail(s, enum.FailurePaymentFailed, intent.ID, fmt.Errorf("gateway reported %q: %s", result.Status, result.Error))
	}

	if result.OrderID != intent.ID || !payment.VerifySignature(result.OrderID, result.PaymentID, result.Signature, p.secret) {
		log.Printf("WARN: reconcile: user=%s gateway_order=%s payment=%s failed signature verification",
			s.Username, result.OrderID, result.PaymentID)
		return Outcome{}, p.fail(s, enum.FailureVerificationFailed, intent.ID, ErrSignatureMismatch)
	}

	return p.commit(ctx, s, PendingOrder{
		OrderNumber:      intent.ID,
		Mode:             enum.PaymentModeOnline,
		GatewayPaymentID: result.PaymentID,
		GatewaySignature: result.Signature,
	}, &intent.Amount)
}

// VerifyCashier looks up the credential pair. A pair different from the
// last verified one drops that match before the lookup.
func (p *Pipeline) VerifyCashier(ctx context.Context, s *Session, cashierID, phone string) (cashier.Match, error) {
	cashierID, phone = strings.TrimSpace(cashierID), strings.TrimSpace(phone)
	if err := s.begin(func(a *attempt) error {
		if a.mode != enum.PaymentModeCash {
			return ErrWrongState
		}
		switch a.state {
		case enum.AttemptModeSelected, enum.AttemptAwaitingVerification, enum.AttemptVerified:
		default:
			return ErrWrongState
		}
		if a.cashier != nil && (a.cashier.cashierID != cashierID || a.cashier.phone != phone) {
			a.cashier = nil
		}
		a.state = enum.AttemptAwaitingVerification
		return nil
	}); err != nil {
		return cashier.Match{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	m, err := p.cashiers.Verify(callCtx, cashierID, phone)
	cancel()
	if err != nil {
		s.finish(func(a *attempt) { a.cashier = nil })
		return cashier.Match{}, err
	}

	s.finish(func(a *attempt) {
		a.state = enum.AttemptVerified
		a.cashier = &verifiedCashier{cashierID: m.CashierID, phone: phone, displayName: m.DisplayName}
	})
	return m, nil
}

// CommitCash commits the cart as a cash order. It is only reachable for
// the exact pair VerifyCashier last matched.
func (p *Pipeline) CommitCash(ctx context.Context, s *Session, cashierID, phone string) (Outcome, error) {
	cashierID, phone = strings.TrimSpace(cashierID), strings.TrimSpace(phone)
	var vc verifiedCashier
	if err := s.begin(func(a *attempt) error {
		if a.mode != enum.PaymentModeCash || a.state != enum.AttemptVerified || a.cashier == nil {
			return ErrCashierNotVerified
		}
		if a.cashier.cashierID != cashierID || a.cashier.phone != phone {
			a.cashier = nil
			a.state = enum.AttemptAwaitingVerification
			return ErrCashierNotVerified
		}
		vc = *a.cashier
		return nil
	}); err != nil {
		return Outcome{}, err
	}

	out, err := p.commit(ctx, s, PendingOrder{
		OrderNumber: enum.CashOrderPrefix + uuid.NewString(),
		Mode:        enum.PaymentModeCash,
		CashierName: vc.displayName,
	}, nil)
	if err != nil {
		return out, err
	}

	// The order is final; a failed counter bump is only logged.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if _, err := p.store.IncrementCashierPaymentCount(callCtx, vc.cashierID); err != nil {
		log.Printf("ERROR: increment payment count cashier=%s order=%s: %v", vc.cashierID, out.Receipt.OrderNumber, err)
	}
	return out, nil
}

// commit runs the shared commit step. The session is busy on entry and
// released on return. paid, when set, must equal the cart total.
func (p *Pipeline) commit(ctx context.Context, s *Session, o PendingOrder, paid *decimal.Decimal) (Outcome, error) {
	s.update(func(a *attempt) { a.state = enum.AttemptCommitting })

	if err := p.refreshStock(ctx, s); err != nil {
		return Outcome{}, p.failMode(s, o.Mode, o.OrderNumber, err)
	}
	if err := s.Cart.CheckStock(); err != nil {
		return Outcome{}, p.failMode(s, o.Mode, o.OrderNumber, err)
	}

	o.Username = s.Username
	o.Items = s.Cart.Snapshot()
	o.TotalAmount = cart.Total(o.Items)
	if paid != nil && !paid.Round(2).Equal(o.TotalAmount) {
		return Outcome{}, p.failMode(s, o.Mode, o.OrderNumber, fmt.Errorf("%w: paid %s, cart %s", ErrAmountMismatch, paid.StringFixed(2), o.TotalAmount.StringFixed(2)))
	}
	now := p.now().In(p.loc)
	o.OrderDate = now.Format(time.DateOnly)
	o.OrderTime = now.Format(time.TimeOnly)

	arg, err := o.params()
	if err != nil {
		return Outcome{}, p.failMode(s, o.Mode, o.OrderNumber, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	start := time.Now()
	committed, err := p.store.CommitOrder(callCtx, arg)
	cancel()
	metrics.ObserveCommit(o.Mode, time.Since(start))
	if err != nil {
		return Outcome{}, p.failMode(s, o.Mode, o.OrderNumber, err)
	}

	s.Cart.Clear()
	rcpt := o.Receipt()
	s.finish(func(a *attempt) {
		a.state = enum.AttemptCommitted
		a.failure = ""
		a.orderNumber = o.OrderNumber
	})
	metrics.Outcome(o.Mode, enum.CheckoutSuccess)
	log.Printf("checkout user=%s order=%s mode=%s total=%s committed", s.Username, o.OrderNumber, o.Mode, rcpt.Total)

	p.publish(ctx, rcpt)
	id := committed.ID
	return Outcome{OrderID: &id, Receipt: &rcpt}, nil
}

// publish stores the receipt and announces the order. Both are
// best-effort; the order is already durable.
func (p *Pipeline) publish(ctx context.Context, rcpt receipt.Payload) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if p.receipts != nil {
		if err := p.receipts.Save(ctx, rcpt); err != nil {
			log.Printf("ERROR: save receipt order=%s: %v", rcpt.OrderNumber, err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.OrderCommitted(ctx, rcpt); err != nil {
			log.Printf("ERROR: notify order=%s: %v", rcpt.OrderNumber, err)
		}
	}
}

func (p *Pipeline) refreshStock(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return s.Cart.RefreshStock(ctx, p.store)
}

func (p *Pipeline) fail(s *Session, reason, orderNumber string, err error) error {
	return p.failWith(s, reason, "", orderNumber, err)
}

// failMode records a COMMIT failure for the given mode.
func (p *Pipeline) failMode(s *Session, mode, orderNumber string, err error) error {
	return p.failWith(s, enum.FailureCommit, mode, orderNumber, err)
}

func (p *Pipeline) failWith(s *Session, reason, mode, orderNumber string, err error) error {
	s.finish(func(a *attempt) {
		if mode == "" {
			mode = a.mode
		}
		a.state = enum.AttemptFailed
		a.failure = reason
	})
	log.Printf("ERROR: checkout user=%s order=%s reason=%s: %v", s.Username, orderNumber, reason, err)
	if reason == enum.FailureCommit && mode == enum.PaymentModeOnline {
		log.Printf("WARN: reconcile: user=%s gateway_order=%s paid but not committed", s.Username, orderNumber)
	}
	metrics.Outcome(mode, reason)
	return &PipelineError{Reason: reason, Mode: mode, Err: err}
}
