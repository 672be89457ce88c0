package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusExpired  = "expired"
)

// User is the subset of the user profile this service reads and mutates.
// Subscription fields are written only by the subscription activator and
// WalletBalanceUSD is a denormalized running total of wallet_transactions.
type User struct {
	ID                    string          `gorm:"primaryKey;type:varchar(64)" json:"id" validate:"required,max=64"`
	Email                 string          `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Name                  string          `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Status                string          `gorm:"type:varchar(50);default:'active'" json:"status" validate:"omitempty,oneof=active inactive"`
	PlanID                string          `gorm:"type:varchar(50);default:'free';index" json:"plan_id"`
	SubscriptionStatus    string          `gorm:"type:varchar(32);default:'inactive'" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time      `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`
	SubscriptionPricePaid decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"subscription_price_paid"`
	SubscriptionCurrency  string          `gorm:"type:varchar(3);default:''" json:"subscription_currency"`
	SubscriptionPeriod    string          `gorm:"type:varchar(16);default:''" json:"subscription_period"`
	WalletBalanceUSD      decimal.Decimal `gorm:"column:wallet_balance_usd;type:decimal(15,2);not null;default:0" json:"wallet_balance_usd"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// HasActiveSubscription reports whether the subscription is active at t.
func (u *User) HasActiveSubscription(t time.Time) bool {
	if u.SubscriptionStatus != SubscriptionStatusActive || u.SubscriptionExpiresAt == nil {
		return false
	}
	return u.SubscriptionExpiresAt.After(t)
}
