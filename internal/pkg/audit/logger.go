package audit

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
)

// Logger appends audit entries. A failed write is logged and dropped.
type Logger struct {
	db *gorm.DB
}

func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record stores one entry for userID.
func (l *Logger) Record(ctx context.Context, userID, action string, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil {
		log.Errorf("[Audit] cannot encode %s details for user %s: %v", action, userID, err)
		raw = []byte("{}")
	}

	entry := &models.AuditLogEntry{
		UserID:  userID,
		Action:  action,
		Details: datatypes.JSON(raw),
	}
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		log.Errorf("[Audit] failed to record %s for user %s: %v", action, userID, err)
	}
}
