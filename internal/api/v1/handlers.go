package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to the controllers to keep behavior consistent
	"github.com/jariassh/dropcost-master/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	billing *controllers.BillingController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(billing *controllers.BillingController) *APIServer {
	return &APIServer{billing: billing}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostPayments serves the gateway webhook, the manual payment check and
// checkout creation on one path, selected by the action parameter.
func (s *APIServer) PostPayments(c *fiber.Ctx, params PostPaymentsParams) error {
	if !params.Action.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action"})
	}
	return s.billing.HandlePayments(c)
}

// GetWallet returns the wallet page. Paging is read by the controller from
// the same query parameters.
func (s *APIServer) GetWallet(c *fiber.Ctx, userID string, params GetWalletParams) error {
	return s.billing.HandleGetWallet(c)
}

// PostAdminReconcileWallet is protected by the admin key middleware attached
// in the router.
func (s *APIServer) PostAdminReconcileWallet(c *fiber.Ctx, userID string) error {
	return s.billing.HandleReconcileWallet(c)
}

func (s *APIServer) GetAdminBillingCounters(c *fiber.Ctx, params GetAdminBillingCountersParams) error {
	return s.billing.HandleGetCounters(c)
}

func (s *APIServer) GetAdminJobs(c *fiber.Ctx) error {
	return s.billing.HandleGetJobStats(c)
}
