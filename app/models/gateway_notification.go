package models

import "time"

// GatewayNotification stores each webhook delivery received from a payment
// gateway. Deliveries are recorded even when they are duplicates; settlement
// idempotency lives on Payment, not here.
type GatewayNotification struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	Topic           string     `gorm:"type:varchar(100);not null;index" json:"topic"`
	ResourceID      string     `gorm:"type:varchar(191);not null;default:'';index" json:"resource_id"`
	RequestID       string     `gorm:"type:varchar(191);not null;default:''" json:"request_id"`
	PayloadJSON     string     `gorm:"type:longtext" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	Outcome         string     `gorm:"type:varchar(32);not null;default:''" json:"outcome"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
