package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jariassh/dropcost-master/app/models"
)

// GatewayPayment is the authoritative payment record fetched from the
// gateway. Webhook bodies are never turned into one of these.
type GatewayPayment struct {
	ID                string
	Status            string
	StatusDetail      string
	Amount            decimal.Decimal
	Currency          string
	PayerEmail        string
	ExternalReference string
	Metadata          PaymentMetadata
	DateApproved      *time.Time
	Raw               []byte
}

// Approved reports whether the gateway considers the payment settled.
func (p *GatewayPayment) Approved() bool {
	return p != nil && p.Status == models.PaymentStatusApproved
}

// PaymentMetadata is what preference creation attached to the checkout.
type PaymentMetadata struct {
	UserID string
	PlanID string
	Period string
}

// PreferenceInput describes a checkout to open at the gateway.
type PreferenceInput struct {
	UserID    string
	Email     string
	PlanID    string
	PlanName  string
	Period    Period
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
}

// Preference is the gateway's answer to PreferenceInput.
type Preference struct {
	ID        string `json:"preference_id"`
	InitPoint string `json:"init_point"`
}

// CheckoutRequest is the client-facing input for preference creation. Price
// and currency are resolved from the plan catalog, never taken from the client.
type CheckoutRequest struct {
	PlanID    string `json:"planId" validate:"required,max=50"`
	Period    string `json:"period" validate:"required"`
	UserID    string `json:"userId" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email,max=200"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
}

// WebhookInput is a gateway notification as received over HTTP.
type WebhookInput struct {
	Topic      string
	ResourceID string
	RequestID  string
	Signature  string
	Payload    []byte
}

// Activation is the single record update performed on the payer.
type Activation struct {
	UserID    string
	PlanID    string
	Period    Period
	PricePaid decimal.Decimal
	Currency  string
	ExpiresAt time.Time
}

// WalletCredit is one referral bonus to append to the ledger.
type WalletCredit struct {
	RecipientUserID   string
	ReferrerID        uint
	AmountUSD         decimal.Decimal
	Description       string
	PaymentExternalID string
}

// Settlement outcomes.
const (
	OutcomeProcessed        = "processed"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeNotApproved      = "not_approved"
	OutcomeIgnored          = "ignored"
	OutcomeFailed           = "failed"
)

// SettlementResult is returned by SettlePayment. Status is the outcome for
// approved payments and the gateway status otherwise.
type SettlementResult struct {
	Status  string          `json:"status"`
	Outcome string          `json:"-"`
	Result  *SettlementInfo `json:"result,omitempty"`
}

// SettlementInfo describes what a newly processed payment changed.
type SettlementInfo struct {
	PaymentID     string           `json:"payment_id"`
	UserID        string           `json:"user_id"`
	PlanID        string           `json:"plan_id"`
	Period        string           `json:"period"`
	ExpiresAt     time.Time        `json:"expires_at"`
	CommissionUSD *decimal.Decimal `json:"commission_usd,omitempty"`
	ReferrerID    uint             `json:"referrer_id,omitempty"`
}
