package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/jariassh/dropcost-master/app/controllers"
	apiv1 "github.com/jariassh/dropcost-master/internal/api/v1"
	"github.com/jariassh/dropcost-master/internal/pkg/constants"
	"github.com/jariassh/dropcost-master/internal/pkg/env"
	"github.com/jariassh/dropcost-master/internal/pkg/middleware"
)

type ApiRouter struct {
	billing  *controllers.BillingController
	storage  fiber.Storage
	adminKey fiber.Handler
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIPrefix, limiter.New(limiter.Config{
		Max:        env.GetInt("API_RATE_LIMIT", 60),
		Expiration: time.Minute,
		Storage:    h.storage,
		// Gateway deliveries must never be throttled.
		Next: isWebhookDelivery,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group(constants.V1Path)
	v1.Use(constants.AdminPath, h.adminKey)
	apiServer := apiv1.NewAPIServer(h.billing)
	apiv1.RegisterHandlers(v1, apiServer)
}

func isWebhookDelivery(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodPost &&
		c.Path() == constants.APIV1Prefix+constants.PaymentsPath &&
		c.Query("action") == controllers.ActionWebhook
}

func NewApiRouter(billing *controllers.BillingController, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{
		billing:  billing,
		storage:  storage,
		adminKey: middleware.AdminAPIKeyMiddleware(),
	}
}
