package billing

import (
	"errors"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

var (
	ErrMissingEventType         = errors.New("missing event type")
	ErrMissingPaymentID         = errors.New("missing payment id")
	ErrInvalidPayload           = errors.New("invalid webhook payload")
	ErrDuplicateEventKey        = errors.New("webhook event key already exists")
	ErrPlanNotFound             = errors.New("billing plan not found")
	ErrPlanRequired             = errors.New("plan code is required")
	ErrCouponCodeRequired       = errors.New("coupon code is required")
	ErrInvalidExternalReference = errors.New("external reference does not match order")
	ErrInvalidCheckout          = errors.New("invalid checkout request")
	ErrInvalidStatusFilter      = errors.New("invalid webhook status filter")
)

// WebhookPayload is the subset of an Asaas webhook body the engine reads.
type WebhookPayload struct {
	Event   string          `json:"event" validate:"required"`
	Payment *WebhookPayment `json:"payment" validate:"required"`
}

// WebhookPayment is the payment object embedded in a webhook body.
type WebhookPayment struct {
	ID                string   `json:"id" validate:"required"`
	ExternalReference *string  `json:"externalReference,omitempty"`
	Status            string   `json:"status,omitempty"`
	Value             *float64 `json:"value,omitempty"`
	BillingType       string   `json:"billingType,omitempty"`
}

type Outcome string

const (
	OutcomeProcessed  Outcome = "processed"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeError      Outcome = "error"
	OutcomeProcessing Outcome = "processing"
)

// WebhookResult describes what ProcessWebhook did with a delivery.
type WebhookResult struct {
	Outcome     Outcome
	Duplicate   bool
	Ignored     bool
	EventKey    string
	Message     string
	ProcessedAt *time.Time
	Event       *models.WebhookEvent
}

// OrderUpdate carries the mutable fields of a billing order.
type OrderUpdate struct {
	Status string
	PaidAt *time.Time
}

// PaymentUpdate replaces status and paid_at together; a nil PaidAt clears it.
type PaymentUpdate struct {
	Status string
	PaidAt *time.Time
}

type SubscriptionUpdate struct {
	Status            string
	LastPaymentStatus string
}

// CouponUpdate changes a coupon. IncrementUses is applied atomically in SQL.
type CouponUpdate struct {
	IncrementUses int
}
