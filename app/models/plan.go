package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a purchasable subscription plan. Read-only for this service; the
// catalog is managed elsewhere.
type Plan struct {
	ID              string          `gorm:"primaryKey;type:varchar(50)" json:"id"`
	Name            string          `gorm:"type:varchar(100);not null" json:"name"`
	PriceMonthly    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price_monthly"`
	PriceSemiannual decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price_semiannual"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
