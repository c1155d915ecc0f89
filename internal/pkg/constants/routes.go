package constants

// API route constants
const (
	ApiRoute          = "/api"
	BillingRoute      = "/api/billing"
	AdminBillingRoute = "/api/admin/billing"
	WebhooksRoute     = "/api/webhooks"

	AsaasWebhookPath   = "/asaas"
	ValidateCouponPath = "/validate-coupon"
	MetricsRoute       = "/metrics"
	DocsRoute          = "/docs"
)
