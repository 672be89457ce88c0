package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditActionPaymentReceived  = "PAYMENT_RECEIVED"
	AuditActionPlanActivated    = "PLAN_ACTIVATED"
	AuditActionCommissionEarned = "COMMISSION_EARNED"
)

// AuditLogEntry is an append-only record of a state transition.
type AuditLogEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Action    string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   datatypes.JSON `gorm:"type:json" json:"details"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
