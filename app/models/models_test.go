package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserValidate(t *testing.T) {
	u := &User{ID: "U1", Email: "u1@example.com", Status: STATUS_ACTIVE}
	assert.NoError(t, u.Validate())

	u.Email = "not-an-email"
	assert.Error(t, u.Validate())

	u = &User{ID: "U1", Status: "banned"}
	assert.Error(t, u.Validate())

	u = &User{Status: STATUS_INACTIVE}
	assert.Error(t, u.Validate(), "id is required")
}

func TestUserHasActiveSubscription(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)

	u := &User{SubscriptionStatus: SubscriptionStatusActive, SubscriptionExpiresAt: &later}
	assert.True(t, u.HasActiveSubscription(now))
	assert.False(t, u.HasActiveSubscription(later))

	u.SubscriptionExpiresAt = nil
	assert.False(t, u.HasActiveSubscription(now))

	u = &User{SubscriptionStatus: SubscriptionStatusExpired, SubscriptionExpiresAt: &later}
	assert.False(t, u.HasActiveSubscription(now))
}

func TestReferrerIsActive(t *testing.T) {
	var nilRef *Referrer
	assert.False(t, nilRef.IsActive())
	assert.True(t, (&Referrer{Status: ReferrerStatusActive}).IsActive())
	assert.False(t, (&Referrer{Status: ReferrerStatusInactive}).IsActive())
}
