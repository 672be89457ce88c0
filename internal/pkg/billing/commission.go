package billing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jariassh/dropcost-master/app/models"
)

const CurrencyUSD = "USD"

// Rate sources reported on a Commission.
const (
	RateSourceIdentity = "identity"
	RateSourceLive     = "live"
	RateSourceFallback = "fallback"
)

var (
	hundred        = decimal.NewFromInt(100)
	defaultPercent = decimal.NewFromInt(models.DefaultCommissionPercent)
)

// Commission is the result of converting a referral commission to USD.
type Commission struct {
	Percent    decimal.Decimal
	Local      decimal.Decimal
	Currency   string
	Rate       decimal.Decimal
	RateSource string
	USD        decimal.Decimal
	PaymentUSD decimal.Decimal
	// Anomaly is set when the commission is not smaller than the payment
	// itself, which means the percentage is misconfigured.
	Anomaly bool
}

// EffectiveCommissionPercent clamps a configured percent to (0, 100]. Any
// value outside that range yields the default of 15.
func EffectiveCommissionPercent(p decimal.Decimal) decimal.Decimal {
	if p.LessThanOrEqual(decimal.Zero) || p.GreaterThan(hundred) {
		return defaultPercent
	}
	return p
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeCommission converts amount*percent to USD with rate expressed as
// units of currency per USD. USD payments ignore rate.
func ComputeCommission(amount decimal.Decimal, currency string, percent decimal.Decimal, rate decimal.Decimal) (Commission, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if amount.LessThanOrEqual(decimal.Zero) {
		return Commission{}, errors.New("payment amount must be positive")
	}

	pct := EffectiveCommissionPercent(percent)
	c := Commission{
		Percent:  pct,
		Local:    Round2(amount.Mul(pct).Div(hundred)),
		Currency: cur,
	}

	if cur == CurrencyUSD {
		c.Rate = decimal.NewFromInt(1)
		c.RateSource = RateSourceIdentity
		c.USD = c.Local
		c.PaymentUSD = Round2(amount)
	} else {
		if rate.LessThanOrEqual(decimal.Zero) {
			return Commission{}, errors.New("exchange rate must be positive")
		}
		c.Rate = rate
		c.USD = Round2(c.Local.Div(rate))
		c.PaymentUSD = Round2(amount.Div(rate))
	}

	c.Anomaly = c.USD.GreaterThanOrEqual(c.PaymentUSD)
	return c, nil
}
