package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

const (
	defaultMercadoPagoAPIBaseURL = "https://api.mercadopago.com"
	defaultGatewayTimeout        = 15 * time.Second
)

// MercadoPagoClient talks to the Mercado Pago REST API with a server access
// token.
type MercadoPagoClient struct {
	AccessToken     string
	APIBaseURL      string
	NotificationURL string
	WebhookSecret   string

	HTTPClient *http.Client
}

func NewMercadoPagoClientFromEnv() *MercadoPagoClient {
	return &MercadoPagoClient{
		AccessToken:     strings.TrimSpace(env.GetEnv("MP_ACCESS_TOKEN", "")),
		APIBaseURL:      strings.TrimSpace(env.GetEnv("MP_API_BASE_URL", defaultMercadoPagoAPIBaseURL)),
		NotificationURL: strings.TrimSpace(env.GetEnv("MP_NOTIFICATION_URL", "")),
		WebhookSecret:   strings.TrimSpace(env.GetEnv("MP_WEBHOOK_SECRET", "")),
		HTTPClient: &http.Client{
			Timeout: env.GetDurationSeconds("GATEWAY_TIMEOUT_SECONDS", defaultGatewayTimeout),
		},
	}
}

// Configured reports whether an access token is present.
func (c *MercadoPagoClient) Configured() bool {
	return c != nil && strings.TrimSpace(c.AccessToken) != ""
}

type mpPaymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	ExternalReference string          `json:"external_reference"`
	DateApproved      *time.Time      `json:"date_approved"`
	Metadata          map[string]any  `json:"metadata"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// GetPayment fetches the authoritative payment by id.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	if !c.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + "/v1/payments/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mercadopago payment request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var raw mpPaymentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("mercadopago payment response: %w", err)
	}
	if raw.ID.String() == "" {
		return nil, errors.New("mercadopago payment response missing id")
	}

	out := &GatewayPayment{
		ID:                raw.ID.String(),
		Status:            strings.ToLower(strings.TrimSpace(raw.Status)),
		StatusDetail:      strings.TrimSpace(raw.StatusDetail),
		Amount:            raw.TransactionAmount,
		Currency:          strings.ToUpper(strings.TrimSpace(raw.CurrencyID)),
		PayerEmail:        strings.TrimSpace(raw.Payer.Email),
		ExternalReference: strings.TrimSpace(raw.ExternalReference),
		DateApproved:      raw.DateApproved,
		Metadata: PaymentMetadata{
			UserID: metadataString(raw.Metadata, "user_id"),
			PlanID: metadataString(raw.Metadata, "plan_id"),
			Period: metadataString(raw.Metadata, "period"),
		},
		Raw: body,
	}

	// Metadata keys are snake_cased by the gateway; older preferences only
	// carried the external reference.
	if out.Metadata.UserID == "" || out.Metadata.PlanID == "" || out.Metadata.Period == "" {
		if ref, ok := ParseExternalReference(out.ExternalReference); ok {
			out.Metadata = ref
		}
	}
	return out, nil
}

type mpPreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPreferenceRequest struct {
	Items             []mpPreferenceItem `json:"items"`
	Payer             map[string]string  `json:"payer,omitempty"`
	BackURLs          map[string]string  `json:"back_urls,omitempty"`
	AutoReturn        string             `json:"auto_return,omitempty"`
	ExternalReference string             `json:"external_reference"`
	Metadata          map[string]string  `json:"metadata"`
	NotificationURL   string             `json:"notification_url,omitempty"`
}

// CreatePreference opens a checkout preference for a plan purchase.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	if !c.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	if in.UserID == "" || in.PlanID == "" {
		return nil, errors.New("user id and plan id are required")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("preference amount must be positive")
	}

	title := in.PlanName
	if title == "" {
		title = in.PlanID
	}
	body := mpPreferenceRequest{
		Items: []mpPreferenceItem{{
			ID:         in.PlanID,
			Title:      fmt.Sprintf("%s (%s)", title, in.Period),
			Quantity:   1,
			UnitPrice:  in.Amount.InexactFloat64(),
			CurrencyID: strings.ToUpper(in.Currency),
		}},
		ExternalReference: FormatExternalReference(PaymentMetadata{UserID: in.UserID, PlanID: in.PlanID, Period: string(in.Period)}),
		Metadata: map[string]string{
			"user_id": in.UserID,
			"plan_id": in.PlanID,
			"period":  string(in.Period),
		},
		NotificationURL: c.NotificationURL,
	}
	if in.Email != "" {
		body.Payer = map[string]string{"email": in.Email}
	}
	if in.ReturnURL != "" {
		body.BackURLs = map[string]string{
			"success": in.ReturnURL,
			"failure": in.ReturnURL,
			"pending": in.ReturnURL,
		}
		body.AutoReturn = "approved"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mercadopago preference request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.InitPoint == "" {
		return nil, errors.New("mercadopago preference response missing id or init_point")
	}
	return &Preference{ID: out.ID, InitPoint: out.InitPoint}, nil
}

func (c *MercadoPagoClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: defaultGatewayTimeout}
}

// FormatExternalReference encodes checkout metadata as user|plan|period.
func FormatExternalReference(m PaymentMetadata) string {
	return strings.Join([]string{m.UserID, m.PlanID, m.Period}, "|")
}

// ParseExternalReference is the inverse of FormatExternalReference.
func ParseExternalReference(ref string) (PaymentMetadata, bool) {
	parts := strings.Split(strings.TrimSpace(ref), "|")
	if len(parts) != 3 {
		return PaymentMetadata{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return PaymentMetadata{}, false
		}
	}
	return PaymentMetadata{UserID: parts[0], PlanID: parts[1], Period: parts[2]}, true
}

func metadataString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
