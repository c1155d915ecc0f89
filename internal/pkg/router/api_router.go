package router

import (
	"time"

	"github.com/ManuelReschke/salvaplantao/app/controllers"
	"github.com/ManuelReschke/salvaplantao/app/repository"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/constants"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const defaultCouponRateLimit = 20

type ApiRouter struct {
	billing        *controllers.BillingController
	users          repository.UserRepository
	jwtSecret      []byte
	limiterStorage fiber.Storage
	couponLimit    int
}

// ApiRouterConfig configures the API routes. A nil LimiterStorage keeps the
// limiter counters in process memory.
type ApiRouterConfig struct {
	Billing            *controllers.BillingController
	Users              repository.UserRepository
	JWTSecret          string
	LimiterStorage     fiber.Storage
	CouponRateLimitMax int
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.ApiRoute)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Provider deliveries are not rate limited.
	webhooks := app.Group(constants.WebhooksRoute)
	webhooks.Post(constants.AsaasWebhookPath, h.billing.HandleAsaasWebhook)

	auth := middleware.JWTAuthMiddleware(h.jwtSecret, h.users)

	billing := app.Group(constants.BillingRoute)
	billing.Get("/plans", h.billing.HandleListPlans)
	billing.Post(constants.ValidateCouponPath, limiter.New(limiter.Config{
		Max:        h.couponLimit,
		Expiration: time.Minute,
		Storage:    h.limiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"valid": false, "message": "Muitas tentativas, tente novamente em instantes"})
		},
	}), h.billing.HandleValidateCoupon)
	billing.Post("/checkout", auth, h.billing.HandleCheckout)
	billing.Get("/status", auth, h.billing.HandleStatus)
	billing.Get("/orders", auth, h.billing.HandleListOrders)

	admin := app.Group(constants.AdminBillingRoute, auth, middleware.RequireAdmin)
	admin.Get("/webhook-events", h.billing.HandleAdminWebhookEvents)
	admin.Get("/webhook-stats", h.billing.HandleAdminWebhookStats)
}

func NewApiRouter(cfg ApiRouterConfig) *ApiRouter {
	limit := cfg.CouponRateLimitMax
	if limit <= 0 {
		limit = defaultCouponRateLimit
	}
	return &ApiRouter{
		billing:        cfg.Billing,
		users:          cfg.Users,
		jwtSecret:      []byte(cfg.JWTSecret),
		limiterStorage: cfg.LimiterStorage,
		couponLimit:    limit,
	}
}
