package service

import (
	"sync"

	"github.com/scanpay/api/internal/cart"
	"github.com/scanpay/api/internal/enum"
	"github.com/scanpay/api/internal/geofence"
	"github.com/scanpay/api/internal/payment"
	"github.com/shopspring/decimal"
)

// Sessions holds one Session per signed-in shopper.
type Sessions struct {
	mu sync.Mutex
	m  map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*Session)}
}

// Get returns the session for username, creating it on first use.
func (r *Sessions) Get(username string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[username]
	if !ok {
		s = newSession(username)
		r.m[username] = s
	}
	return s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Session is a shopper's cart plus at most one order attempt. Pipeline
// steps for one session never overlap; a second step while one is running
// gets ErrAttemptInFlight.
type Session struct {
	Username string
	Cart     *cart.Cart
	Location *geofence.Watcher

	mu      sync.Mutex
	busy    bool
	attempt attempt
}

func newSession(username string) *Session {
	return &Session{
		Username: username,
		Cart:     cart.New(),
		Location: geofence.NewWatcher(),
		attempt:  attempt{state: enum.AttemptIdle},
	}
}

type verifiedCashier struct {
	cashierID   string
	phone       string
	displayName string
}

type attempt struct {
	state       string
	mode        string
	failure     string
	intent      *payment.Intent
	cashier     *verifiedCashier
	orderNumber string
}

// intentOutstanding reports whether the gateway checkout UI may be open.
func (a *attempt) intentOutstanding() bool {
	return a.mode == enum.PaymentModeOnline && a.state == enum.AttemptAwaitingVerification
}

// Attempt is a read-only view of the current order attempt.
type Attempt struct {
	State         string           `json:"state"`
	Mode          string           `json:"mode,omitempty"`
	Failure       string           `json:"failure,omitempty"`
	IntentID      string           `json:"intent_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	CashierName   string           `json:"cashier_name,omitempty"`
	OrderNumber   string           `json:"order_number,omitempty"`
	CommitEnabled bool             `json:"commit_enabled"`
	InFlight      bool             `json:"in_flight"`
}

// Attempt returns the current attempt state.
func (s *Session) Attempt() Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.attempt
	v := Attempt{
		State:       a.state,
		Mode:        a.mode,
		Failure:     a.failure,
		OrderNumber: a.orderNumber,
		InFlight:    s.busy,
	}
	if a.intent != nil {
		v.IntentID = a.intent.ID
		amt := a.intent.Amount
		v.Amount = &amt
	}
	if a.cashier != nil {
		v.CashierName = a.cashier.displayName
	}
	v.CommitEnabled = !s.busy && a.mode == enum.PaymentModeCash && a.state == enum.AttemptVerified
	return v
}

// EditCart runs fn against the cart unless an online payment is open or
// a pipeline step is running.
func (s *Session) EditCart(fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || s.attempt.intentOutstanding() || s.attempt.state == enum.AttemptCommitting {
		return ErrCartLocked
	}
	return fn(s.Cart)
}

// begin marks the session busy after check accepts the attempt state.
func (s *Session) begin(check func(a *attempt) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrAttemptInFlight
	}
	if err := check(&s.attempt); err != nil {
		return err
	}
	s.busy = true
	return nil
}

// update mutates the attempt while the session stays busy.
func (s *Session) update(fn func(a *attempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.attempt)
}

// finish applies fn and releases the session.
func (s *Session) finish(fn func(a *attempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		fn(&s.attempt)
	}
	s.busy = false
}
