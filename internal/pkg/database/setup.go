package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jariassh/dropcost-master/app/models"
	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the shared connection opened by SetupDatabase.
var DB *gorm.DB

// Models are migrated on startup. migrations/ holds the same schema as SQL.
var Models = []any{
	&models.User{},
	&models.Plan{},
	&models.Payment{},
	&models.ReferralLink{},
	&models.Referrer{},
	&models.WalletTransaction{},
	&models.AuditLogEntry{},
	&models.GatewayNotification{},
}

// DSN builds the MySQL data source name from DB_*.
func DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// SetupDatabase connects with retries and migrates Models. It returns the
// last connection error once the retries are exhausted.
func SetupDatabase() error {
	logLevel := logger.Warn
	if env.IsDev() {
		logLevel = logger.Info
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
		if err == nil {
			if env.GetBool("DB_AUTO_MIGRATE", true) {
				if err = DB.AutoMigrate(Models...); err != nil {
					return fmt.Errorf("auto migrate: %w", err)
				}
			}
			sqlDB, derr := DB.DB()
			if derr == nil {
				sqlDB.SetMaxOpenConns(env.GetInt("DB_MAX_OPEN_CONNS", 25))
				sqlDB.SetMaxIdleConns(env.GetInt("DB_MAX_IDLE_CONNS", 5))
				sqlDB.SetConnMaxLifetime(30 * time.Minute)
			}
			log.Info("[Database] Connected")
			return nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return err
}

// GetDB returns the shared connection.
func GetDB() *gorm.DB {
	return DB
}

// Close closes the shared connection.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
