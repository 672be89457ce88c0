package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEffectiveCommissionPercent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15", "15"},
		{"0.5", "0.5"},
		{"100", "100"},
		{"250", "15"},
		{"100.01", "15"},
		{"0", "15"},
		{"-5", "15"},
	}
	for _, tt := range tests {
		got := EffectiveCommissionPercent(d(tt.in))
		if !got.Equal(d(tt.want)) {
			t.Fatalf("EffectiveCommissionPercent(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestComputeCommission_COP(t *testing.T) {
	c, err := ComputeCommission(d("100000"), "COP", d("15"), d("4000"))
	require.NoError(t, err)
	assert.Equal(t, "15000.00", c.Local.StringFixed(2))
	assert.Equal(t, "3.75", c.USD.StringFixed(2))
	assert.Equal(t, "25.00", c.PaymentUSD.StringFixed(2))
	assert.False(t, c.Anomaly)
}

func TestComputeCommission_USDIsIdentity(t *testing.T) {
	c, err := ComputeCommission(d("29.99"), "usd", d("15"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, RateSourceIdentity, c.RateSource)
	assert.Equal(t, "4.50", c.USD.StringFixed(2))
	assert.True(t, c.Rate.Equal(decimal.NewFromInt(1)))
}

func TestComputeCommission_RoundsHalfUp(t *testing.T) {
	// 10.10 * 15% = 1.515
	c, err := ComputeCommission(d("10.10"), "USD", d("15"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "1.52", c.USD.StringFixed(2))
}

func TestComputeCommission_ClampedPercent(t *testing.T) {
	c, err := ComputeCommission(d("100000"), "COP", d("250"), d("4000"))
	require.NoError(t, err)
	assert.Equal(t, "15", c.Percent.String())
	assert.Equal(t, "3.75", c.USD.StringFixed(2))
}

func TestComputeCommission_Anomaly(t *testing.T) {
	c, err := ComputeCommission(d("50"), "USD", d("100"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, c.Anomaly)
	assert.Equal(t, "50.00", c.USD.StringFixed(2))
}

func TestComputeCommission_InvalidInput(t *testing.T) {
	_, err := ComputeCommission(decimal.Zero, "USD", d("15"), decimal.Zero)
	assert.Error(t, err)

	_, err = ComputeCommission(d("1000"), "COP", d("15"), decimal.Zero)
	assert.Error(t, err)
}
