package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WalletTransactionTypeReferralBonus = "referral_bonus"
)

// WalletTransaction is an immutable wallet ledger line. The ledger is the
// source of truth for balances; users.wallet_balance_usd is derived from it.
// At most one row per (payment_external_id, type).
type WalletTransaction struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RecipientUserID   string          `gorm:"type:varchar(64);not null;index" json:"recipient_user_id"`
	Type              string          `gorm:"type:varchar(30);not null;index;uniqueIndex:ux_wallet_tx_payment_type,priority:2" json:"type"`
	AmountUSD         decimal.Decimal `gorm:"column:amount_usd;type:decimal(15,2);not null" json:"amount_usd"`
	Description       string          `gorm:"type:varchar(255)" json:"description"`
	PaymentExternalID string          `gorm:"type:varchar(191);not null;uniqueIndex:ux_wallet_tx_payment_type,priority:1" json:"payment_external_id"`
	ReferrerID        uint            `gorm:"index" json:"referrer_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
