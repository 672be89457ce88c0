package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
	"github.com/jariassh/dropcost-master/internal/pkg/testutil"
)

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := NewFactory(db).GetRepositories()
	require.NoError(t, db.Create(&models.User{ID: "U1", Email: "u1@example.com"}).Error)

	u, err := repos.User.GetByID(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email)

	u, err = repos.User.GetByEmail(context.Background(), " u1@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "U1", u.ID)

	_, err = repos.User.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPlanRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Plan{ID: "plan_pro", Name: "Pro", PriceMonthly: decimal.RequireFromString("29.99"), PriceSemiannual: decimal.RequireFromString("149.99"), IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Plan{ID: "plan_basic", Name: "Basic", PriceMonthly: decimal.RequireFromString("9.99"), PriceSemiannual: decimal.RequireFromString("49.99"), IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Plan{ID: "plan_old", Name: "Old", PriceMonthly: decimal.RequireFromString("5"), PriceSemiannual: decimal.RequireFromString("25"), IsActive: true}).Error)
	require.NoError(t, db.Model(&models.Plan{}).Where("id = ?", "plan_old").Update("is_active", false).Error)

	plans, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "plan_basic", plans[0].ID)
	assert.Equal(t, "plan_pro", plans[1].ID)

	p, err := repo.GetByID(ctx, "plan_old")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestWalletRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.User{ID: "R1", WalletBalanceUSD: decimal.RequireFromString("7.50")}).Error)
	for i := 1; i <= 3; i++ {
		require.NoError(t, db.Create(&models.WalletTransaction{
			RecipientUserID:   "R1",
			Type:              models.WalletTransactionTypeReferralBonus,
			AmountUSD:         decimal.RequireFromString("2.50"),
			PaymentExternalID: fmt.Sprintf("PAY-%d", i),
		}).Error)
	}

	balance, err := repo.GetBalance(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "7.50", balance.StringFixed(2))

	txs, err := repo.ListTransactions(ctx, "R1", 0, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "PAY-3", txs[0].PaymentExternalID)

	count, err := repo.CountTransactions(ctx, "R1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	_, err = repo.GetBalance(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
