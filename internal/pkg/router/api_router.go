package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/obramarket/ObraMarket/app/controllers"
	"github.com/obramarket/ObraMarket/app/repository"
	"github.com/obramarket/ObraMarket/internal/pkg/billing"
	"github.com/obramarket/ObraMarket/internal/pkg/database"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	repos := repository.GetGlobalRepositories()
	billingSvc := billing.NewServiceFromDB(database.GetDB())

	billingCtrl := controllers.NewBillingControllerFromEnv(billingSvc)
	storeCtrl := controllers.NewStoreController(repos.Store)
	notificationCtrl := controllers.NewNotificationController(repos.Notification)

	app.Get("/up", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// The webhook endpoint stays outside the rate limiter: the provider
	// retries aggressively and its own signature check is the gate.
	v1.Post("/billing/webhook", billingCtrl.HandleStripeWebhook)

	limited := v1.Group("", limiter.New())
	limited.Post("/billing/sync", billingCtrl.HandleCheckoutSync)
	limited.Get("/stores", storeCtrl.HandleListStores)
	limited.Get("/stores/:slug", storeCtrl.HandleGetStoreBySlug)
	limited.Get("/users/:id/notifications", notificationCtrl.HandleListNotifications)
	limited.Patch("/users/:id/notifications/:notificationId/read", notificationCtrl.HandleMarkNotificationRead)
}
