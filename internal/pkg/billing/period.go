package billing

import (
	"fmt"
	"strings"
	"time"
)

// Period is the billing cycle a payment pays for.
type Period string

const (
	PeriodMonthly    Period = "monthly"
	PeriodSemiannual Period = "semiannual"
)

// ParsePeriod accepts only the known periods. There is no default: an
// unrecognized value returns ErrUnknownPeriod.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodMonthly, PeriodSemiannual:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
	}
}

// Months returns the number of calendar months covered by the period.
func (p Period) Months() int {
	switch p {
	case PeriodMonthly:
		return 1
	case PeriodSemiannual:
		return 6
	default:
		return 0
	}
}

// ExpiresAt adds the period to from in calendar months. Day overflow is
// normalized the way time.AddDate does (Jan 31 + 1 month = Mar 3).
func (p Period) ExpiresAt(from time.Time) (time.Time, error) {
	months := p.Months()
	if months == 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
	}
	return from.AddDate(0, months, 0), nil
}

func (p Period) String() string {
	return string(p)
}
