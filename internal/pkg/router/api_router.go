package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/valetdesk/ValetDesk/app/controllers"
	"github.com/valetdesk/ValetDesk/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		// Webhook deliveries burst; never rate-limit the gateway.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/payments/webhook"
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// session
	v1.Post("/auth/login", controllers.HandleAuthLogin)
	v1.Post("/auth/logout", controllers.HandleAuthLogout)

	// payments
	v1.Post("/payments", middleware.RequireAuth, controllers.HandleCreatePayment)
	v1.Post("/public/payments", controllers.HandleCreatePublicPayment)
	v1.Post("/payments/refund", middleware.RequireManager, controllers.HandleRefundPayment)
	v1.Post("/payments/webhook", controllers.HandlePaymentWebhook)

	// requests
	v1.Post("/requests", middleware.RequireAuth, controllers.HandleCreateRequest)
	v1.Post("/public/requests", controllers.HandleCreatePublicRequest)
	v1.Post("/requests/:id/handle", middleware.RequireAuth, controllers.HandleMarkRequestHandled)
	v1.Post("/requests/:id/take", middleware.RequireAuth, controllers.HandleTakeRequest)
	v1.Get("/requests", middleware.RequireAuth, controllers.HandleListRequests)

	// tickets
	v1.Post("/tickets", middleware.RequireAuth, controllers.HandleCreateTicket)
	v1.Get("/tickets/by-token/:token", controllers.HandleTicketByToken)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
