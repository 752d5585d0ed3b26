package enum

// ── Group A: State machines ──

// Order attempt states. COMMITTED and FAILED are terminal for one attempt.
const (
	AttemptIdle                 = "IDLE"
	AttemptModeSelected         = "MODE_SELECTED"
	AttemptAwaitingVerification = "AWAITING_VERIFICATION"
	AttemptVerified             = "VERIFIED"
	AttemptCommitting           = "COMMITTING"
	AttemptCommitted            = "COMMITTED"
	AttemptFailed               = "FAILED"
)

// Failure reasons recorded on a FAILED attempt.
const (
	FailureGatewaySetup       = "GATEWAY_SETUP"
	FailurePaymentFailed      = "PAYMENT_FAILED"
	FailureVerificationFailed = "VERIFICATION_FAILED"
	FailureCommit             = "COMMIT"
)

// Results reported by the device after the gateway checkout UI closes.
const (
	CheckoutSuccess   = "success"
	CheckoutCancelled = "cancelled"
	CheckoutFailed    = "failed"
)

// ── Group B: CHECK constrained in DB ──

const (
	PaymentModeCash   = "CASH"
	PaymentModeOnline = "ONLINE"
)

const (
	UserRoleCustomer = "CUSTOMER"
	UserRoleAdmin    = "ADMIN"
)

// ── Group C: Labels ──

const (
	CurrencyINR = "INR"

	// CashOrderPrefix distinguishes locally generated order numbers from
	// gateway-issued order ids.
	CashOrderPrefix = "CASH-"
)

// ValidPaymentMode reports whether s is a known payment mode.
func ValidPaymentMode(s string) bool {
	return s == PaymentModeCash || s == PaymentModeOnline
}
