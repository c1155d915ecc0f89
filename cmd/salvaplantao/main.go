package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ManuelReschke/salvaplantao/app/controllers"
	"github.com/ManuelReschke/salvaplantao/app/repository"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/cache"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/constants"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/database"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/env"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitGlobalFactory(database.GetDB())
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/salvaplantao to project root
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); err == nil {
			basePath = path
			break
		}
	}

	factory := repository.GetGlobalFactory()
	rdb := cache.GetClient()
	svc := billing.NewService(
		factory.GetBillingRepository(),
		billing.WithLocker(cache.NewLocker(rdb), env.GetEnvDuration("WEBHOOK_LOCK_TTL", billing.DefaultLockTTL)),
	)
	billingController := controllers.NewBillingController(svc, env.GetEnv("ASAAS_WEBHOOK_TOKEN", ""), counter.NewOutcomes(rdb))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := svc.EnsurePlans(ctx); err != nil {
		log.Printf("Warning: could not seed billing plans: %v", err)
	}
	cancel()

	jwtSecret := env.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Printf("Warning: JWT_SECRET is empty, authenticated billing routes will reject every token")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:         1 << 20,
		EnablePrintRoutes: env.IsDev(),
	})

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(requestid.Config{Generator: uuid.NewString}), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ORIGIN", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// fiber metrics
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute + "/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.NewApiRouter(router.ApiRouterConfig{
		Billing:            billingController,
		Users:              factory.GetUserRepository(),
		JWTSecret:          jwtSecret,
		LimiterStorage:     cache.NewLimiterStorage(),
		CouponRateLimitMax: env.GetEnvInt("COUPON_RATE_LIMIT", 20),
	}))

	return app
}
