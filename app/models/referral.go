package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReferrerStatusActive   = "active"
	ReferrerStatusInactive = "inactive"
)

// DefaultCommissionPercent applies when a referrer's configured percent is
// outside (0, 100].
const DefaultCommissionPercent = 15

// ReferralLink ties a referred user to the referrer that brought them in.
// Created at registration time; read-only for the payment ledger.
type ReferralLink struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferredUserID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_referral_links_referred_user" json:"referred_user_id"`
	ReferrerID     uint      `gorm:"not null;index" json:"referrer_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Referrer is a referral leader. Commissions are credited to PayoutUserID's
// wallet and accumulated in TotalCommissionsGenerated (USD).
type Referrer struct {
	ID                        uint            `gorm:"primaryKey" json:"id"`
	PayoutUserID              string          `gorm:"type:varchar(64);not null;index" json:"payout_user_id"`
	CommissionPercent         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:15" json:"commission_percent"`
	Status                    string          `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	TotalCommissionsGenerated decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_commissions_generated"`
	CreatedAt                 time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the referrer may earn commissions.
func (r *Referrer) IsActive() bool {
	return r != nil && r.Status == ReferrerStatusActive
}
