package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jariassh/dropcost-master/app/controllers"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, billing *controllers.BillingController) {
	setup(app, NewApiRouter(billing, NewLimiterStorage()))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
