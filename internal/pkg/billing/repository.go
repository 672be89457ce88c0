package billing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jariassh/dropcost-master/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// Transaction runs fn in a transaction. Calling Transaction on the
	// repository handed to fn opens a savepoint.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	PaymentExists(ctx context.Context, externalID string) (bool, error)
	CreatePaymentIfNotExists(ctx context.Context, payment *models.Payment) (bool, error)
	ActivateSubscription(ctx context.Context, in Activation) error
	FindReferrerForUser(ctx context.Context, referredUserID string) (*models.Referrer, error)
	CreditWallet(ctx context.Context, in WalletCredit) (*models.WalletTransaction, error)
	RecomputeWalletBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)

	RecordGatewayNotification(ctx context.Context, n *models.GatewayNotification) error
	MarkGatewayNotificationProcessed(ctx context.Context, id uint, outcome, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) PaymentExists(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("external_id = ?", externalID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// CreatePaymentIfNotExists inserts the payment unless its external id is
// already stored. The boolean is false when another delivery got there first.
func (r *gormRepository) CreatePaymentIfNotExists(ctx context.Context, payment *models.Payment) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ActivateSubscription writes every subscription field in one UPDATE.
func (r *gormRepository) ActivateSubscription(ctx context.Context, in Activation) error {
	expiresAt := in.ExpiresAt
	updates := map[string]interface{}{
		"plan_id":                 in.PlanID,
		"subscription_status":     models.SubscriptionStatusActive,
		"subscription_expires_at": &expiresAt,
		"subscription_price_paid": in.PricePaid,
		"subscription_currency":   in.Currency,
		"subscription_period":     string(in.Period),
	}
	tx := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", in.UserID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindReferrerForUser returns the referrer linked to a referred user, or nil
// when the user was not referred.
func (r *gormRepository) FindReferrerForUser(ctx context.Context, referredUserID string) (*models.Referrer, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).Where("referred_user_id = ?", referredUserID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var referrer models.Referrer
	if err := r.db.WithContext(ctx).First(&referrer, link.ReferrerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// CreditWallet appends a referral bonus and bumps the derived totals with
// atomic increments. It must run inside a transaction for the three writes
// to commit together.
func (r *gormRepository) CreditWallet(ctx context.Context, in WalletCredit) (*models.WalletTransaction, error) {
	db := r.db.WithContext(ctx)

	entry := &models.WalletTransaction{
		RecipientUserID:   in.RecipientUserID,
		Type:              models.WalletTransactionTypeReferralBonus,
		AmountUSD:         in.AmountUSD,
		Description:       in.Description,
		PaymentExternalID: in.PaymentExternalID,
		ReferrerID:        in.ReferrerID,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_external_id"}, {Name: "type"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyCredited
	}

	res = db.Model(&models.User{}).
		Where("id = ?", in.RecipientUserID).
		Update("wallet_balance_usd", gorm.Expr("wallet_balance_usd + CAST(? AS DECIMAL(15,2))", in.AmountUSD))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	if in.ReferrerID != 0 {
		if err := db.Model(&models.Referrer{}).
			Where("id = ?", in.ReferrerID).
			Update("total_commissions_generated", gorm.Expr("total_commissions_generated + CAST(? AS DECIMAL(15,2))", in.AmountUSD)).Error; err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// RecomputeWalletBalance overwrites the denormalized balance with the sum of
// the user's ledger.
func (r *gormRepository) RecomputeWalletBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var sum decimal.NullDecimal
		if err := tx.Model(&models.WalletTransaction{}).
			Select("SUM(amount_usd)").
			Where("recipient_user_id = ?", userID).
			Row().Scan(&sum); err != nil {
			return err
		}
		if sum.Valid {
			total = Round2(sum.Decimal)
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("wallet_balance_usd", total).Error
	})
	return total, err
}

func (r *gormRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) RecordGatewayNotification(ctx context.Context, n *models.GatewayNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormRepository) MarkGatewayNotificationProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"outcome":          outcome,
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.GatewayNotification{}).Where("id = ?", id).Updates(updates).Error
}
