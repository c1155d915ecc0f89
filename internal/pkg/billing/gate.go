package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

type Decision int

const (
	// DecisionNew means the delivery was recorded for the first time.
	DecisionNew Decision = iota
	// DecisionRetry means a stored attempt failed or never finished.
	DecisionRetry
	// DecisionDuplicate means the event was already processed successfully.
	DecisionDuplicate
)

func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionRetry:
		return "retry"
	case DecisionDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Gate decides, from the stored event record, whether a delivery must be
// processed. The unique event key index is the final arbiter between
// concurrent deliveries.
type Gate struct {
	repo Repository
	now  func() time.Time
}

func NewGate(repo Repository, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{repo: repo, now: now}
}

// Admit looks up or records the event and returns the decision together with
// the stored row.
func (g *Gate) Admit(ctx context.Context, provider, eventType, paymentID, payload string) (Decision, *models.WebhookEvent, error) {
	key := EventKey(provider, eventType, paymentID)

	existing, err := g.repo.GetWebhookEventByKey(ctx, key)
	if err != nil {
		return DecisionNew, nil, fmt.Errorf("lookup webhook event %s: %w", key, err)
	}
	if existing != nil {
		return decide(existing), existing, nil
	}

	event := &models.WebhookEvent{
		Provider:         provider,
		EventType:        eventType,
		EventKey:         key,
		PayloadJSON:      payload,
		ProcessingStatus: models.WebhookStatusPending,
		ReceivedAt:       g.now(),
	}
	if err := g.repo.CreateWebhookEvent(ctx, event); err != nil {
		if !errors.Is(err, ErrDuplicateEventKey) {
			return DecisionNew, nil, fmt.Errorf("record webhook event %s: %w", key, err)
		}
		// A concurrent delivery inserted the row first.
		existing, err = g.repo.GetWebhookEventByKey(ctx, key)
		if err != nil {
			return DecisionNew, nil, fmt.Errorf("reload webhook event %s: %w", key, err)
		}
		if existing == nil {
			return DecisionNew, nil, fmt.Errorf("webhook event %s missing after conflict", key)
		}
		return decide(existing), existing, nil
	}
	return DecisionNew, event, nil
}

func decide(event *models.WebhookEvent) Decision {
	if event.IsProcessed() {
		return DecisionDuplicate
	}
	return DecisionRetry
}
