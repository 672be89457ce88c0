package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/repository"
	"github.com/jariassh/dropcost-master/internal/pkg/billing"
	"github.com/jariassh/dropcost-master/internal/pkg/jobqueue"
)

const (
	ActionWebhook          = "webhook"
	ActionCheckPayment     = "check_payment"
	ActionCreatePreference = "create_preference"
)

// CounterStore exposes the monitoring counters.
type CounterStore interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
	Drain(ctx context.Context) (map[string]int64, error)
}

// QueueStats reports the background job backlog.
type QueueStats interface {
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
}

// BillingController serves payment settlement, checkout and wallet endpoints.
type BillingController struct {
	svc      *billing.Service
	wallets  repository.WalletRepository
	counters CounterStore
	queue    QueueStats
	validate *validator.Validate
}

// NewBillingController wires the controller. counters and queue may be nil.
func NewBillingController(svc *billing.Service, wallets repository.WalletRepository, counters CounterStore, queue QueueStats) *BillingController {
	return &BillingController{
		svc:      svc,
		wallets:  wallets,
		counters: counters,
		queue:    queue,
		validate: validator.New(),
	}
}

type checkPaymentRequest struct {
	PaymentID    string `json:"paymentId"`
	PaymentIDAlt string `json:"payment_id"`
}

func (r checkPaymentRequest) id() string {
	if id := strings.TrimSpace(r.PaymentID); id != "" {
		return id
	}
	return strings.TrimSpace(r.PaymentIDAlt)
}

// webhookBody is the JSON Mercado Pago posts alongside the query parameters.
type webhookBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// dataID accepts the id as a JSON number or string.
func (b webhookBody) dataID() string {
	raw := strings.TrimSpace(string(b.Data.ID))
	if raw == "null" {
		return ""
	}
	return strings.Trim(raw, `"`)
}

// HandlePayments dispatches POST /payments on the action query parameter.
func (bc *BillingController) HandlePayments(c *fiber.Ctx) error {
	switch strings.TrimSpace(c.Query("action")) {
	case ActionWebhook:
		return bc.HandleWebhook(c)
	case ActionCheckPayment:
		return bc.HandleCheckPayment(c)
	case ActionCreatePreference:
		return bc.HandleCreatePreference(c)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action"})
	}
}

// HandleWebhook always answers 200 so the gateway does not retry deliveries
// that failed on our side; failures are logged and recorded.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)

	var body webhookBody
	if len(rawBody) > 0 {
		if err := json.Unmarshal(rawBody, &body); err != nil {
			log.Warnf("[Billing] webhook body is not JSON: %v", err)
		}
	}

	in := billing.WebhookInput{
		Topic:      firstNonEmpty(c.Query("type"), c.Query("topic"), body.Type, body.Topic),
		ResourceID: firstNonEmpty(c.Query("data.id"), c.Query("id"), body.dataID()),
		RequestID:  strings.TrimSpace(c.Get("X-Request-Id")),
		Signature:  strings.TrimSpace(c.Get("X-Signature")),
		Payload:    rawBody,
	}

	res, err := bc.svc.HandleWebhook(c.UserContext(), in)
	if err != nil {
		log.Errorf("[Billing] webhook %s %s failed: %v", in.Topic, in.ResourceID, err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": res.Status})
}

// HandleCheckPayment settles a payment on demand, typically after the buyer
// returns from checkout.
func (bc *BillingController) HandleCheckPayment(c *fiber.Ctx) error {
	var req checkPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	id := req.id()
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "paymentId is required"})
	}

	res, err := bc.svc.SettlePayment(c.UserContext(), id)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// HandleCreatePreference opens a checkout for a plan.
func (bc *BillingController) HandleCreatePreference(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := bc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	pref, err := bc.svc.CreatePreference(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPeriod) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return respondBillingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(pref)
}

// HandleGetWallet returns the balance and a page of ledger entries.
func (bc *BillingController) HandleGetWallet(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	ctx := c.UserContext()

	balance, err := bc.wallets.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Errorf("[Billing] wallet balance for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	txs, err := bc.wallets.ListTransactions(ctx, userID, offset, limit)
	if err != nil {
		log.Errorf("[Billing] wallet transactions for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	total, err := bc.wallets.CountTransactions(ctx, userID)
	if err != nil {
		log.Errorf("[Billing] wallet count for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{
		"user_id":      userID,
		"balance_usd":  balance.StringFixed(2),
		"transactions": txs,
		"total":        total,
		"offset":       offset,
		"limit":        limit,
	})
}

// HandleReconcileWallet recomputes a wallet balance from the ledger (admin).
func (bc *BillingController) HandleReconcileWallet(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	total, err := bc.svc.ReconcileWalletBalance(c.UserContext(), userID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "balance_usd": total.StringFixed(2)})
}

// HandleGetCounters returns the billing counters; reset=true drains them (admin).
func (bc *BillingController) HandleGetCounters(c *fiber.Ctx) error {
	if bc.counters == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "counters unavailable"})
	}
	read := bc.counters.Snapshot
	if c.QueryBool("reset", false) {
		read = bc.counters.Drain
	}
	counts, err := read(c.UserContext())
	if err != nil {
		log.Errorf("[Billing] reading counters: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"counters": counts})
}

// HandleGetJobStats reports the notification and archive backlog (admin).
func (bc *BillingController) HandleGetJobStats(c *fiber.Ctx) error {
	if bc.queue == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "job queue unavailable"})
	}
	ctx := c.UserContext()
	pending, err := bc.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[Billing] reading job queue size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	processing, err := bc.queue.GetProcessingSize(ctx)
	if err != nil {
		log.Errorf("[Billing] reading job processing size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	stats, err := bc.queue.GetJobStats(ctx)
	if err != nil {
		log.Errorf("[Billing] reading job stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{
		"pending":    pending,
		"processing": processing,
		"stats":      stats,
	})
}

// respondBillingError maps service errors to HTTP statuses.
func respondBillingError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, billing.ErrPaymentNotFound),
		errors.Is(err, billing.ErrUserNotFound),
		errors.Is(err, billing.ErrPlanNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, billing.ErrInvalidPayment),
		errors.Is(err, billing.ErrUnknownPeriod):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, billing.ErrGatewayUnavailable):
		status = fiber.StatusBadGateway
	case errors.Is(err, billing.ErrGatewayNotConfigured):
		status = fiber.StatusInternalServerError
	default:
		log.Errorf("[Billing] request failed: %v", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" is "+fe.Tag())
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
