package billing

import "strings"

// EventKey builds the semantic identity of a webhook delivery. Provider
// redeliveries of the same event for the same payment map to the same key.
func EventKey(provider, eventType, paymentID string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + ":" +
		strings.TrimSpace(eventType) + ":" +
		strings.TrimSpace(paymentID)
}
