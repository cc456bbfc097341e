package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/obramarket/ObraMarket/app/repository"
	"github.com/obramarket/ObraMarket/internal/pkg/billing"
	"github.com/obramarket/ObraMarket/internal/pkg/cache"
	"github.com/obramarket/ObraMarket/internal/pkg/database"
	"github.com/obramarket/ObraMarket/internal/pkg/env"
	"github.com/obramarket/ObraMarket/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()
	billing.SetKeyFromEnv()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	app.Use(recover.New(), logger.New())

	// fiber metrics, guarded in deployments (this binary is the one that
	// ships; the root main stays open for local runs)
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app)

	return app
}
