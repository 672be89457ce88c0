package fxrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

const (
	defaultAPIURL  = "https://api.exchangerate-api.com/v4/latest/USD"
	defaultTimeout = 5 * time.Second
)

var ErrUnknownCurrency = errors.New("currency not present in rate table")

// fallbackRates is used when the provider cannot be reached. Units of
// currency per one USD.
var fallbackRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"COP": decimal.NewFromInt(4000),
}

// FallbackRate returns the static rate for currency, if one is built in.
func FallbackRate(currency string) (decimal.Decimal, bool) {
	r, ok := fallbackRates[strings.ToUpper(strings.TrimSpace(currency))]
	return r, ok
}

// Client fetches USD-based rates. Every call hits the provider; concurrent
// calls share one in-flight request.
type Client struct {
	URL        string
	HTTPClient *http.Client

	group singleflight.Group
}

func NewClientFromEnv() *Client {
	timeout := env.GetDurationSeconds("FX_TIMEOUT_SECONDS", defaultTimeout)
	return &Client{
		URL:        strings.TrimSpace(env.GetEnv("FX_API_URL", defaultAPIURL)),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Rates returns the full rate table keyed by upper-case currency code.
func (c *Client) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	ch := c.group.DoChan("rates", func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout())
		defer cancel()
		return c.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]decimal.Decimal), nil
	}
}

// USDRate returns how many units of currency buy one USD.
func (c *Client) USDRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "USD" {
		return decimal.NewFromInt(1), nil
	}
	rates, err := c.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[cur]
	if !ok || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, cur)
	}
	return rate, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fx rate request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var raw struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("fx rate response: %w", err)
	}
	if len(raw.Rates) == 0 {
		return nil, errors.New("fx rate response has no rates")
	}

	out := make(map[string]decimal.Decimal, len(raw.Rates))
	for code, rate := range raw.Rates {
		out[strings.ToUpper(code)] = rate
	}
	return out, nil
}

func (c *Client) timeout() time.Duration {
	if c.HTTPClient != nil && c.HTTPClient.Timeout > 0 {
		return c.HTTPClient.Timeout
	}
	return defaultTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}
