package billing

import "errors"

var (
	// ErrGatewayNotConfigured means the gateway credential is missing. Nothing
	// is processed.
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	// ErrGatewayUnavailable wraps any failure to fetch the authoritative
	// payment. It is retryable and nothing is marked processed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPaymentNotFound is returned when the gateway does not know the id.
	ErrPaymentNotFound = errors.New("payment not found at gateway")
	// ErrInvalidPayment marks an approved payment whose metadata cannot be
	// settled (missing user, plan or amount).
	ErrInvalidPayment = errors.New("invalid payment")
	ErrUnknownPeriod  = errors.New("unknown subscription period")
	ErrUserNotFound   = errors.New("user not found")
	ErrPlanNotFound   = errors.New("plan not found")

	// ErrAlreadyProcessed signals a lost insert race on the payment's
	// external id. Callers treat it as success.
	ErrAlreadyProcessed = errors.New("payment already processed")
	// ErrAlreadyCredited signals an existing referral bonus for the payment.
	ErrAlreadyCredited = errors.New("commission already credited for payment")
	ErrNoFallbackRate  = errors.New("no fallback exchange rate for currency")
)
