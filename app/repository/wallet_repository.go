package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
)

const maxWalletPageSize = 100

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// GetBalance returns the denormalized balance stored on the user row.
func (r *walletRepository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "wallet_balance_usd").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return decimal.Zero, err
	}
	return user.WalletBalanceUSD, nil
}

// ListTransactions returns the user's ledger, newest first.
func (r *walletRepository) ListTransactions(ctx context.Context, userID string, offset, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > maxWalletPageSize {
		limit = maxWalletPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var txs []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("recipient_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *walletRepository) CountTransactions(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("recipient_user_id = ?", userID).
		Count(&count).Error
	return count, err
}
