package apiv1

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ServerInterface represents all server handlers of docs/v1/openapi.yml.
type ServerInterface interface {
	// Health check
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// Mercado Pago webhook, manual payment check and checkout creation
	// (POST /payments)
	PostPayments(c *fiber.Ctx, params PostPaymentsParams) error
	// Wallet balance and ledger page
	// (GET /wallets/{userId})
	GetWallet(c *fiber.Ctx, userID string, params GetWalletParams) error
	// Recompute a wallet balance from its ledger
	// (POST /admin/wallets/{userId}/reconcile)
	PostAdminReconcileWallet(c *fiber.Ctx, userID string) error
	// Billing monitoring counters
	// (GET /admin/billing/counters)
	GetAdminBillingCounters(c *fiber.Ctx, params GetAdminBillingCountersParams) error
	// Background job backlog
	// (GET /admin/jobs)
	GetAdminJobs(c *fiber.Ctx) error
}

// ServerInterfaceWrapper converts fiber contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// MiddlewareFunc is a fiber handler run before the operation.
type MiddlewareFunc fiber.Handler

func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

func (siw *ServerInterfaceWrapper) PostPayments(c *fiber.Ctx) error {
	var params PostPaymentsParams
	params.Action = PostPaymentsParamsAction(c.Query("action"))
	if params.Action == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query argument action is required, but not found")
	}
	return siw.Handler.PostPayments(c, params)
}

func (siw *ServerInterfaceWrapper) GetWallet(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid format for parameter userId: empty")
	}

	var params GetWalletParams
	var err error
	if params.Offset, err = optionalInt(c, "offset"); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if params.Limit, err = optionalInt(c, "limit"); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return siw.Handler.GetWallet(c, userID, params)
}

func (siw *ServerInterfaceWrapper) PostAdminReconcileWallet(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid format for parameter userId: empty")
	}
	return siw.Handler.PostAdminReconcileWallet(c, userID)
}

func (siw *ServerInterfaceWrapper) GetAdminBillingCounters(c *fiber.Ctx) error {
	var params GetAdminBillingCountersParams
	if raw := c.Query("reset"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter reset: %v", err))
		}
		params.Reset = &v
	}
	return siw.Handler.GetAdminBillingCounters(c, params)
}

func (siw *ServerInterfaceWrapper) GetAdminJobs(c *fiber.Ctx) error {
	return siw.Handler.GetAdminJobs(c)
}

func optionalInt(c *fiber.Ctx, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("Invalid format for parameter %s: %w", name, err)
	}
	return &v, nil
}

// FiberServerOptions provides options for the fiber server.
type FiberServerOptions struct {
	BaseURL     string
	Middlewares []MiddlewareFunc
}

// RegisterHandlers installs the routes of docs/v1/openapi.yml on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, FiberServerOptions{})
}

// RegisterHandlersWithOptions is RegisterHandlers with a base URL and middlewares.
func RegisterHandlersWithOptions(router fiber.Router, si ServerInterface, options FiberServerOptions) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	for _, m := range options.Middlewares {
		router.Use(fiber.Handler(m))
	}

	router.Get(options.BaseURL+"/ping", wrapper.GetPing)
	router.Post(options.BaseURL+"/payments", wrapper.PostPayments)
	router.Get(options.BaseURL+"/wallets/:userId", wrapper.GetWallet)
	router.Post(options.BaseURL+"/admin/wallets/:userId/reconcile", wrapper.PostAdminReconcileWallet)
	router.Get(options.BaseURL+"/admin/billing/counters", wrapper.GetAdminBillingCounters)
	router.Get(options.BaseURL+"/admin/jobs", wrapper.GetAdminJobs)
}
