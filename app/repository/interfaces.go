package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
)

// UserRepository defines the user reads needed outside the settlement path
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// PlanRepository reads the plan catalogue
type PlanRepository interface {
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
}

// WalletRepository is the read side of the wallet ledger
type WalletRepository interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID string, offset, limit int) ([]models.WalletTransaction, error)
	CountTransactions(ctx context.Context, userID string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User   UserRepository
	Plan   PlanRepository
	Wallet WalletRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Plan:   NewPlanRepository(db),
		Wallet: NewWalletRepository(db),
	}
}
