package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing/billingtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGateAdmitNewEvent(t *testing.T) {
	repo := billingtest.NewMemoryRepository()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	gate := billing.NewGate(repo, fixedClock(now))

	decision, event, err := gate.Admit(context.Background(), "asaas", "PAYMENT_CONFIRMED", "pay_1", `{"event":"PAYMENT_CONFIRMED"}`)
	require.NoError(t, err)
	assert.Equal(t, billing.DecisionNew, decision)
	assert.Equal(t, "asaas:PAYMENT_CONFIRMED:pay_1", event.EventKey)
	assert.Equal(t, models.WebhookStatusPending, event.ProcessingStatus)
	assert.Equal(t, now, event.ReceivedAt)
	assert.Equal(t, 1, repo.EventCount())
}

func TestGateAdmitExistingEvents(t *testing.T) {
	tests := []struct {
		status models.WebhookProcessingStatus
		want   billing.Decision
	}{
		{status: models.WebhookStatusProcessed, want: billing.DecisionDuplicate},
		{status: models.WebhookStatusFailed, want: billing.DecisionRetry},
		{status: models.WebhookStatusPending, want: billing.DecisionRetry},
	}

	for _, tt := range tests {
		repo := billingtest.NewMemoryRepository()
		repo.AddEvent(models.WebhookEvent{EventKey: "asaas:PAYMENT_CONFIRMED:pay_1", ProcessingStatus: tt.status})
		gate := billing.NewGate(repo, nil)

		decision, event, err := gate.Admit(context.Background(), "asaas", "PAYMENT_CONFIRMED", "pay_1", "{}")
		require.NoError(t, err)
		assert.Equal(t, tt.want, decision, "status %s", tt.status)
		assert.Equal(t, tt.status, event.ProcessingStatus)
		assert.Equal(t, 1, repo.EventCount())
	}
}

func TestGateAdmitLosesCreateRace(t *testing.T) {
	repo := billingtest.NewMemoryRepository()
	repo.BeforeCreateEvent = func(key string) {
		repo.BeforeCreateEvent = nil
		repo.AddEvent(models.WebhookEvent{EventKey: key, ProcessingStatus: models.WebhookStatusProcessed})
	}
	gate := billing.NewGate(repo, nil)

	decision, event, err := gate.Admit(context.Background(), "asaas", "PAYMENT_CONFIRMED", "pay_1", "{}")
	require.NoError(t, err)
	assert.Equal(t, billing.DecisionDuplicate, decision)
	assert.True(t, event.IsProcessed())
	assert.Equal(t, 1, repo.EventCount())
}

func TestGateAdmitStorageFailure(t *testing.T) {
	repo := billingtest.NewMemoryRepository()
	boom := errors.New("db down")
	repo.FailOn("GetWebhookEventByKey", boom)

	_, _, err := billing.NewGate(repo, nil).Admit(context.Background(), "asaas", "PAYMENT_CONFIRMED", "pay_1", "{}")
	assert.ErrorIs(t, err, boom)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "new", billing.DecisionNew.String())
	assert.Equal(t, "retry", billing.DecisionRetry.String())
	assert.Equal(t, "duplicate", billing.DecisionDuplicate.String())
}
