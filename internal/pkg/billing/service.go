package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
	"github.com/jariassh/dropcost-master/internal/pkg/fxrate"
)

// Gateway is the payment provider API used by the service.
type Gateway interface {
	Configured() bool
	GetPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error)
}

// RateSource returns units of currency per one USD.
type RateSource interface {
	USDRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// AuditRecorder appends audit entries. Implementations swallow their own
// failures.
type AuditRecorder interface {
	Record(ctx context.Context, userID, action string, details map[string]any)
}

// Notifier dispatches an event without blocking the caller.
type Notifier interface {
	Dispatch(event string, payload map[string]string)
}

// Archiver stores the raw gateway payload of a settled payment.
type Archiver interface {
	ArchivePayment(ctx context.Context, externalID string, raw []byte) error
}

// Metrics counts monitoring signals.
type Metrics interface {
	Incr(ctx context.Context, name string)
}

// Counter names.
const (
	MetricPaymentsSettled     = "payments_settled"
	MetricPaymentsDuplicate   = "payments_duplicate"
	MetricPaymentsNotApproved = "payments_not_approved"
	MetricCommissionCredited  = "commission_credited"
	MetricCommissionFailed    = "commission_failed"
	MetricCommissionAnomaly   = "commission_anomaly"
	MetricFXFallback          = "fx_fallback"
	MetricNotificationFailed  = "notification_failed"
)

// Notification events.
const (
	EventSubscriptionActivated    = "SUBSCRIPTION_ACTIVATED"
	EventReferralCommissionEarned = "REFERRAL_COMMISSION_EARNED"
)

// Dependencies are the collaborators of Service. Nil fields are replaced by
// no-ops, except Gateway which yields ErrGatewayNotConfigured.
type Dependencies struct {
	Gateway        Gateway
	Rates          RateSource
	Audit          AuditRecorder
	Notifier       Notifier
	Archiver       Archiver
	Metrics        Metrics
	WebhookSecret  string
	GatewayTimeout time.Duration
	Now            func() time.Time
}

// Service settles gateway payments: subscription activation, referral
// commission and wallet ledger.
type Service struct {
	repo Repository
	deps Dependencies
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, deps Dependencies) *Service {
	if deps.Audit == nil {
		deps.Audit = nopAudit{}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.GatewayTimeout <= 0 {
		deps.GatewayTimeout = defaultGatewayTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{repo: repo, deps: deps}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, deps Dependencies) *Service {
	return NewService(NewRepository(db), deps)
}

// AlreadyProcessed reports whether a payment with this external id was
// settled. It is a cheap pre-check; the insert in SettlePayment is the guard.
func (s *Service) AlreadyProcessed(ctx context.Context, externalID string) (bool, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return false, errors.New("external id is required")
	}
	return s.repo.PaymentExists(ctx, id)
}

// SettlePayment fetches the payment from the gateway and, when approved and
// new, activates the subscription and credits any referral commission. A
// duplicate returns OutcomeAlreadyProcessed with no side effects.
func (s *Service) SettlePayment(ctx context.Context, paymentID string) (*SettlementResult, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidPayment)
	}
	if s.deps.Gateway == nil || !s.deps.Gateway.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.deps.GatewayTimeout)
	payment, err := s.deps.Gateway.GetPayment(fetchCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrGatewayNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if !payment.Approved() {
		log.Infof("[Billing] payment %s not approved (status=%s detail=%s)", payment.ID, payment.Status, payment.StatusDetail)
		s.deps.Metrics.Incr(ctx, MetricPaymentsNotApproved)
		return &SettlementResult{Status: payment.Status, Outcome: OutcomeNotApproved}, nil
	}

	meta := payment.Metadata
	if meta.UserID == "" || meta.PlanID == "" {
		return nil, fmt.Errorf("%w: payment %s has no user or plan metadata", ErrInvalidPayment, payment.ID)
	}
	if payment.Amount.LessThanOrEqual(decimal.Zero) || payment.Currency == "" {
		return nil, fmt.Errorf("%w: payment %s has no amount or currency", ErrInvalidPayment, payment.ID)
	}
	period, err := ParsePeriod(meta.Period)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.PaymentExists(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.duplicate(ctx, payment.ID), nil
	}

	now := s.deps.Now()
	expiresAt, err := period.ExpiresAt(now)
	if err != nil {
		return nil, err
	}

	// Referral lookup and FX happen before the transaction so no row locks
	// are held across network I/O.
	quote, quoteErr := s.QuoteCommission(ctx, meta.UserID, payment.Amount, payment.Currency)
	if quoteErr != nil {
		log.Errorf("[Billing] commission quote for payment %s failed: %v", payment.ID, quoteErr)
		s.deps.Metrics.Incr(ctx, MetricCommissionFailed)
	}

	var credited *models.WalletTransaction
	var creditErr error
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		created, err := tx.CreatePaymentIfNotExists(ctx, &models.Payment{
			Provider:   models.PaymentProviderMercadoPago,
			ExternalID: payment.ID,
			UserID:     meta.UserID,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			Status:     payment.Status,
			PlanID:     meta.PlanID,
			Period:     string(period),
			RawPayload: string(payment.Raw),
		})
		if err != nil {
			return err
		}
		if !created {
			return ErrAlreadyProcessed
		}

		if err := tx.ActivateSubscription(ctx, Activation{
			UserID:    meta.UserID,
			PlanID:    meta.PlanID,
			Period:    period,
			PricePaid: payment.Amount,
			Currency:  payment.Currency,
			ExpiresAt: expiresAt,
		}); err != nil {
			return fmt.Errorf("activate subscription for %s: %w", meta.UserID, err)
		}

		if quote == nil {
			return nil
		}
		// Savepoint: a failed credit rolls back only its own writes.
		creditErr = tx.Transaction(ctx, func(sp Repository) error {
			entry, err := sp.CreditWallet(ctx, WalletCredit{
				RecipientUserID:   quote.Referrer.PayoutUserID,
				ReferrerID:        quote.Referrer.ID,
				AmountUSD:         quote.USD,
				Description:       commissionDescription(payment, quote),
				PaymentExternalID: payment.ID,
			})
			if err != nil {
				return err
			}
			credited = entry
			return nil
		})
		return nil
	})
	if errors.Is(err, ErrAlreadyProcessed) {
		return s.duplicate(ctx, payment.ID), nil
	}
	if err != nil {
		log.Errorf("[Billing] settlement of payment %s failed: %v", payment.ID, err)
		return nil, err
	}

	if creditErr != nil {
		credited = nil
		log.Errorf("[Billing] crediting commission for payment %s to %s failed: %v", payment.ID, quote.Referrer.PayoutUserID, creditErr)
		s.deps.Metrics.Incr(ctx, MetricCommissionFailed)
	}

	log.Infof("[Billing] payment %s settled: user=%s plan=%s period=%s expires=%s", payment.ID, meta.UserID, meta.PlanID, period, expiresAt.Format(time.RFC3339))
	s.afterSettlement(ctx, payment, period, expiresAt, quote, credited)

	info := &SettlementInfo{
		PaymentID: payment.ID,
		UserID:    meta.UserID,
		PlanID:    meta.PlanID,
		Period:    string(period),
		ExpiresAt: expiresAt,
	}
	if credited != nil {
		usd := credited.AmountUSD
		info.CommissionUSD = &usd
		info.ReferrerID = quote.Referrer.ID
	}
	return &SettlementResult{Status: OutcomeProcessed, Outcome: OutcomeProcessed, Result: info}, nil
}

func (s *Service) duplicate(ctx context.Context, paymentID string) *SettlementResult {
	log.Infof("[Billing] payment %s already processed", paymentID)
	s.deps.Metrics.Incr(ctx, MetricPaymentsDuplicate)
	return &SettlementResult{Status: OutcomeAlreadyProcessed, Outcome: OutcomeAlreadyProcessed}
}

// afterSettlement runs the best-effort steps that follow a committed
// settlement. None of them can fail the request.
func (s *Service) afterSettlement(ctx context.Context, p *GatewayPayment, period Period, expiresAt time.Time, quote *CommissionQuote, credited *models.WalletTransaction) {
	ctx = context.WithoutCancel(ctx)
	userID := p.Metadata.UserID

	s.deps.Metrics.Incr(ctx, MetricPaymentsSettled)
	s.deps.Audit.Record(ctx, userID, models.AuditActionPaymentReceived, map[string]any{
		"payment_id": p.ID,
		"amount":     p.Amount.StringFixed(2),
		"currency":   p.Currency,
		"status":     p.Status,
	})
	s.deps.Audit.Record(ctx, userID, models.AuditActionPlanActivated, map[string]any{
		"payment_id": p.ID,
		"plan_id":    p.Metadata.PlanID,
		"period":     string(period),
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	s.deps.Notifier.Dispatch(EventSubscriptionActivated, map[string]string{
		"user_id":    userID,
		"email":      p.PayerEmail,
		"plan_id":    p.Metadata.PlanID,
		"period":     string(period),
		"expires_at": expiresAt.Format("2006-01-02"),
		"amount":     p.Amount.StringFixed(2),
		"currency":   p.Currency,
	})

	if credited != nil {
		s.deps.Metrics.Incr(ctx, MetricCommissionCredited)
		s.deps.Audit.Record(ctx, credited.RecipientUserID, models.AuditActionCommissionEarned, map[string]any{
			"payment_id":       p.ID,
			"referred_user_id": userID,
			"referrer_id":      quote.Referrer.ID,
			"percent":          quote.Percent.String(),
			"amount_local":     quote.Local.StringFixed(2),
			"currency":         quote.Currency,
			"rate":             quote.Rate.String(),
			"rate_source":      quote.RateSource,
			"amount_usd":       credited.AmountUSD.StringFixed(2),
		})
		s.deps.Notifier.Dispatch(EventReferralCommissionEarned, map[string]string{
			"user_id":    credited.RecipientUserID,
			"amount_usd": credited.AmountUSD.StringFixed(2),
			"payment_id": p.ID,
		})
	}

	if s.deps.Archiver != nil && len(p.Raw) > 0 {
		if err := s.deps.Archiver.ArchivePayment(ctx, p.ID, p.Raw); err != nil {
			log.Warnf("[Billing] failed to queue archive of payment %s: %v", p.ID, err)
		}
	}
}

// CommissionQuote is a commission ready to be credited to Referrer.
type CommissionQuote struct {
	Commission
	Referrer *models.Referrer
}

// QuoteCommission resolves the payer's referrer and prices the commission in
// USD. It returns nil without error when no commission is due.
func (s *Service) QuoteCommission(ctx context.Context, payerID string, amount decimal.Decimal, currency string) (*CommissionQuote, error) {
	referrer, err := s.repo.FindReferrerForUser(ctx, payerID)
	if err != nil {
		return nil, fmt.Errorf("referral lookup: %w", err)
	}
	if referrer == nil {
		return nil, nil
	}
	if !referrer.IsActive() {
		log.Infof("[Billing] referrer %d of user %s is %s, no commission", referrer.ID, payerID, referrer.Status)
		return nil, nil
	}
	if referrer.PayoutUserID == "" {
		return nil, fmt.Errorf("referrer %d has no payout user", referrer.ID)
	}

	cur := strings.ToUpper(strings.TrimSpace(currency))
	rate := decimal.NewFromInt(1)
	source := RateSourceIdentity
	if cur != CurrencyUSD {
		rate, source, err = s.usdRate(ctx, cur)
		if err != nil {
			return nil, err
		}
	}

	c, err := ComputeCommission(amount, cur, referrer.CommissionPercent, rate)
	if err != nil {
		return nil, err
	}
	if cur != CurrencyUSD {
		c.RateSource = source
	}
	if !c.USD.IsPositive() {
		log.Warnf("[Billing] commission for user %s rounds to zero, skipped", payerID)
		return nil, nil
	}
	if c.Anomaly {
		log.Warnf("[Billing] commission anomaly: %s USD >= payment %s USD (referrer=%d percent=%s)", c.USD.StringFixed(2), c.PaymentUSD.StringFixed(2), referrer.ID, c.Percent)
		s.deps.Metrics.Incr(ctx, MetricCommissionAnomaly)
	}
	return &CommissionQuote{Commission: c, Referrer: referrer}, nil
}

func (s *Service) usdRate(ctx context.Context, currency string) (decimal.Decimal, string, error) {
	var fetchErr error
	if s.deps.Rates != nil {
		rate, err := s.deps.Rates.USDRate(ctx, currency)
		if err == nil {
			return rate, RateSourceLive, nil
		}
		fetchErr = err
	} else {
		fetchErr = errors.New("no rate source configured")
	}

	rate, ok := fxrate.FallbackRate(currency)
	if !ok {
		return decimal.Zero, "", fmt.Errorf("%w %s (fetch: %v)", ErrNoFallbackRate, currency, fetchErr)
	}
	log.Warnf("[FX] using fallback rate %s for %s: %v", rate, currency, fetchErr)
	s.deps.Metrics.Incr(ctx, MetricFXFallback)
	return rate, RateSourceFallback, nil
}

func commissionDescription(p *GatewayPayment, q *CommissionQuote) string {
	return fmt.Sprintf("Referral commission %s%% of %s %s (payment %s)", q.Percent.String(), p.Amount.StringFixed(2), p.Currency, p.ID)
}

// HandleWebhook records a gateway notification and settles the payment it
// points at. The notification body is stored but never trusted.
func (s *Service) HandleWebhook(ctx context.Context, in WebhookInput) (*SettlementResult, error) {
	topic := strings.ToLower(strings.TrimSpace(in.Topic))
	resourceID := strings.TrimSpace(in.ResourceID)

	n := &models.GatewayNotification{
		Provider:    models.PaymentProviderMercadoPago,
		Topic:       topic,
		ResourceID:  resourceID,
		RequestID:   strings.TrimSpace(in.RequestID),
		PayloadJSON: string(in.Payload),
	}
	if s.deps.WebhookSecret != "" {
		n.SignatureValid = VerifyMercadoPagoSignature(in.Signature, in.RequestID, resourceID, s.deps.WebhookSecret)
		if !n.SignatureValid {
			log.Warnf("[Billing] webhook signature invalid for %s %s (request=%s)", topic, resourceID, n.RequestID)
		}
	}
	if err := s.repo.RecordGatewayNotification(ctx, n); err != nil {
		log.Errorf("[Billing] failed to record webhook delivery: %v", err)
	}

	var res *SettlementResult
	var err error
	switch {
	case topic != "payment":
		res = &SettlementResult{Status: OutcomeIgnored, Outcome: OutcomeIgnored}
	case resourceID == "":
		err = fmt.Errorf("%w: webhook without payment id", ErrInvalidPayment)
	default:
		res, err = s.SettlePayment(ctx, resourceID)
	}

	if n.ID != 0 {
		outcome, msg := OutcomeFailed, ""
		if err != nil {
			msg = err.Error()
		} else {
			outcome = res.Outcome
		}
		if markErr := s.repo.MarkGatewayNotificationProcessed(context.WithoutCancel(ctx), n.ID, outcome, msg); markErr != nil {
			log.Errorf("[Billing] failed to mark webhook delivery %d: %v", n.ID, markErr)
		}
	}
	return res, err
}

// CreatePreference prices the plan from the catalog and opens a checkout at
// the gateway.
func (s *Service) CreatePreference(ctx context.Context, in CheckoutRequest) (*Preference, error) {
	if s.deps.Gateway == nil || !s.deps.Gateway.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	period, err := ParsePeriod(in.Period)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.GetPlan(ctx, strings.TrimSpace(in.PlanID))
	if err != nil {
		return nil, err
	}

	price := plan.PriceMonthly
	if period == PeriodSemiannual {
		price = plan.PriceSemiannual
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: plan %s has no %s price", ErrPlanNotFound, plan.ID, period)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.deps.GatewayTimeout)
	defer cancel()
	pref, err := s.deps.Gateway.CreatePreference(callCtx, PreferenceInput{
		UserID:    strings.TrimSpace(in.UserID),
		Email:     strings.TrimSpace(in.Email),
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Period:    period,
		Amount:    price,
		Currency:  plan.Currency,
		ReturnURL: strings.TrimSpace(in.ReturnURL),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	log.Infof("[Billing] preference %s created for user %s plan %s (%s)", pref.ID, in.UserID, plan.ID, period)
	return pref, nil
}

// ReconcileWalletBalance recomputes a user's balance from the ledger.
func (s *Service) ReconcileWalletBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return decimal.Zero, errors.New("user id is required")
	}
	total, err := s.repo.RecomputeWalletBalance(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	log.Infof("[Billing] wallet of %s reconciled to %s USD", id, total.StringFixed(2))
	return total, nil
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, string, string, map[string]any) {}

type nopNotifier struct{}

func (nopNotifier) Dispatch(string, map[string]string) {}

type nopMetrics struct{}

func (nopMetrics) Incr(context.Context, string) {}
