package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jariassh/dropcost-master/app/models"
	"github.com/jariassh/dropcost-master/internal/pkg/testutil"
)

func TestRepository_CreatePaymentIfNotExists(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	p := &models.Payment{ExternalID: "PAY-1", UserID: "U1", Amount: decimal.RequireFromString("10"), Currency: "USD", Status: "approved", PlanID: "plan_pro", Period: "monthly"}
	created, err := repo.CreatePaymentIfNotExists(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.Payment{ExternalID: "PAY-1", UserID: "U2", Amount: decimal.RequireFromString("99"), Currency: "USD", Status: "approved", PlanID: "plan_x", Period: "monthly"}
	created, err = repo.CreatePaymentIfNotExists(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	var stored models.Payment
	require.NoError(t, db.Where("external_id = ?", "PAY-1").First(&stored).Error)
	assert.Equal(t, "U1", stored.UserID)

	exists, err := repo.PaymentExists(ctx, "PAY-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.PaymentExists(ctx, "PAY-2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_ActivateSubscription(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, db.Create(&models.User{ID: "U1"}).Error)

	expires := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
	err := repo.ActivateSubscription(context.Background(), Activation{
		UserID: "U1", PlanID: "plan_pro", Period: PeriodMonthly,
		PricePaid: decimal.RequireFromString("29.99"), Currency: "USD", ExpiresAt: expires,
	})
	require.NoError(t, err)

	u, err := repo.GetUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "plan_pro", u.PlanID)
	assert.True(t, u.HasActiveSubscription(expires.Add(-time.Hour)))
	assert.False(t, u.HasActiveSubscription(expires.Add(time.Hour)))

	err = repo.ActivateSubscription(context.Background(), Activation{UserID: "nobody", PlanID: "plan_pro", Period: PeriodMonthly, ExpiresAt: expires})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_CreditWalletOncePerPayment(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.User{ID: "R1"}).Error)
	ref := &models.Referrer{PayoutUserID: "R1", CommissionPercent: decimal.NewFromInt(15), Status: models.ReferrerStatusActive}
	require.NoError(t, db.Create(ref).Error)

	credit := WalletCredit{RecipientUserID: "R1", ReferrerID: ref.ID, AmountUSD: decimal.RequireFromString("3.75"), PaymentExternalID: "PAY-1"}
	err := repo.Transaction(ctx, func(tx Repository) error {
		_, err := tx.CreditWallet(ctx, credit)
		return err
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, func(tx Repository) error {
		_, err := tx.CreditWallet(ctx, credit)
		return err
	})
	require.ErrorIs(t, err, ErrAlreadyCredited)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "R1").Error)
	assert.Equal(t, "3.75", user.WalletBalanceUSD.StringFixed(2))

	var stored models.Referrer
	require.NoError(t, db.First(&stored, ref.ID).Error)
	assert.Equal(t, "3.75", stored.TotalCommissionsGenerated.StringFixed(2))
}

func TestRepository_FindReferrerForUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ref, err := repo.FindReferrerForUser(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, ref)

	stored := &models.Referrer{PayoutUserID: "R1", CommissionPercent: decimal.NewFromInt(20), Status: models.ReferrerStatusActive}
	require.NoError(t, db.Create(stored).Error)
	require.NoError(t, db.Create(&models.ReferralLink{ReferredUserID: "U1", ReferrerID: stored.ID}).Error)

	ref, err = repo.FindReferrerForUser(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "R1", ref.PayoutUserID)
	assert.True(t, ref.IsActive())
}
