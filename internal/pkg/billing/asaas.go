package billing

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	AsaasWebhookTokenHeader = "X-Asaas-Webhook-Token"
	AsaasAccessTokenHeader  = "Asaas-Access-Token"
)

var payloadValidator = validator.New()

// ParseAsaasWebhook decodes and validates a raw webhook body.
func ParseAsaasWebhook(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p.Event = strings.TrimSpace(p.Event)
	if p.Payment != nil {
		p.Payment.ID = strings.TrimSpace(p.Payment.ID)
	}

	if err := payloadValidator.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if p.Event == "" {
			return nil, ErrMissingEventType
		}
		return nil, ErrMissingPaymentID
	}
	return &p, nil
}

// VerifyAsaasWebhookToken compares the shared access token in constant time.
// An empty configured token disables the check.
func VerifyAsaasWebhookToken(configured, received string) bool {
	expected := strings.TrimSpace(configured)
	if expected == "" {
		return true
	}
	got := strings.TrimSpace(received)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// ParseExternalReference splits "userId|orderId". ok is false unless both
// parts are present and the order id is a positive integer.
func ParseExternalReference(ref *string) (userID string, orderID uint, ok bool) {
	if ref == nil {
		return "", 0, false
	}
	parts := strings.Split(strings.TrimSpace(*ref), "|")
	if len(parts) != 2 {
		return "", 0, false
	}
	userID = strings.TrimSpace(parts[0])
	id, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if userID == "" || err != nil || id == 0 {
		return "", 0, false
	}
	return userID, uint(id), true
}
