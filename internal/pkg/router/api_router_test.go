package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuelReschke/salvaplantao/app/controllers"
	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing/billingtest"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type noUsers struct{}

func (noUsers) GetByID(string) (*models.User, error) { return nil, gorm.ErrRecordNotFound }

func newTestApp(couponLimit int) *fiber.App {
	svc := billing.NewService(billingtest.NewMemoryRepository())
	app := fiber.New()
	InstallRouter(app, NewApiRouter(ApiRouterConfig{
		Billing:            controllers.NewBillingController(svc, "", nil),
		Users:              noUsers{},
		JWTSecret:          "secret",
		CouponRateLimitMax: couponLimit,
	}))
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestCouponValidationIsRateLimited(t *testing.T) {
	app := newTestApp(2)

	assert.Equal(t, fiber.StatusOK, post(t, app, "/api/billing/validate-coupon", `{"couponCode":"X"}`))
	assert.Equal(t, fiber.StatusOK, post(t, app, "/api/billing/validate-coupon", `{"couponCode":"X"}`))
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app, "/api/billing/validate-coupon", `{"couponCode":"X"}`))
}

func TestWebhookIsNotRateLimited(t *testing.T) {
	app := newTestApp(1)

	for i := 0; i < 5; i++ {
		status := post(t, app, "/api/webhooks/asaas", `{"event":"PAYMENT_OVERDUE","payment":{"id":"pay_1"}}`)
		assert.Equal(t, fiber.StatusOK, status)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(0)

	for _, path := range []string{"/api/billing/status", "/api/billing/orders", "/api/admin/billing/webhook-events"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
	assert.Equal(t, fiber.StatusUnauthorized, post(t, app, "/api/billing/checkout", `{"planCode":"monthly"}`))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/billing/plans", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
