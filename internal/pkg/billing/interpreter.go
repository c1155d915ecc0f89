package billing

import (
	"strings"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
	EventPaymentOverdue   = "PAYMENT_OVERDUE"
	EventPaymentDeleted   = "PAYMENT_DELETED"
	EventPaymentRefunded  = "PAYMENT_REFUNDED"
	EventPaymentUpdated   = "PAYMENT_UPDATED"
)

// InterpretEvent maps a provider event type to the internal payment status.
// Event names match exactly, the same way EventKey keys them. recognized is
// false for events the engine does not act on.
func InterpretEvent(eventType, providerStatus string) (status string, recognized bool) {
	switch strings.TrimSpace(eventType) {
	case EventPaymentConfirmed, EventPaymentReceived:
		return models.PaymentStatusPaid, true
	case EventPaymentOverdue:
		return models.PaymentStatusFailed, true
	case EventPaymentDeleted, EventPaymentRefunded:
		return models.PaymentStatusRefunded, true
	case EventPaymentUpdated:
		s := strings.ToUpper(strings.TrimSpace(providerStatus))
		if s == "" {
			return models.PaymentStatusPending, true
		}
		return s, true
	default:
		return "", false
	}
}
