package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentProviderMercadoPago = "mercadopago"
)

// Gateway payment statuses as reported by Mercado Pago.
const (
	PaymentStatusApproved    = "approved"
	PaymentStatusPending     = "pending"
	PaymentStatusInProcess   = "in_process"
	PaymentStatusRejected    = "rejected"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusRefunded    = "refunded"
	PaymentStatusChargedBack = "charged_back"
	PaymentStatusAuthorized  = "authorized"
	PaymentStatusInMediation = "in_mediation"
)

// Payment is a settled gateway payment. One row per ExternalID, never updated
// after creation; the unique index on external_id is the idempotency anchor.
type Payment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Provider   string          `gorm:"type:varchar(20);not null;default:'mercadopago'" json:"provider"`
	ExternalID string          `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_external_id" json:"external_id"`
	UserID     string          `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status     string          `gorm:"type:varchar(32);not null" json:"status"`
	PlanID     string          `gorm:"type:varchar(50);not null" json:"plan_id"`
	Period     string          `gorm:"type:varchar(16);not null" json:"period"`
	RawPayload string          `gorm:"type:longtext" json:"-"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
