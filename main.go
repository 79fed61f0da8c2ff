package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/valetdesk/ValetDesk/app/controllers"
	"github.com/valetdesk/ValetDesk/app/repository"
	"github.com/valetdesk/ValetDesk/internal/pkg/cache"
	"github.com/valetdesk/ValetDesk/internal/pkg/database"
	"github.com/valetdesk/ValetDesk/internal/pkg/env"
	"github.com/valetdesk/ValetDesk/internal/pkg/metrics/counter"
	"github.com/valetdesk/ValetDesk/internal/pkg/payment"
	"github.com/valetdesk/ValetDesk/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	gateway := payment.NewStripeGatewayFromEnv()
	controllers.InitServices(database.GetDB(), gateway, env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"))

	app := fiber.New(fiber.Config{
		AppName: "ValetDesk",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	// Drain pending view counters to the database periodically.
	go func() {
		for range time.Tick(time.Minute) {
			if err := counter.FlushAll(); err != nil {
				log.Printf("counter flush failed: %v", err)
			}
		}
	}()

	return app
}
