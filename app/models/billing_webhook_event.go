package models

import "time"

const BillingProviderAsaas = "asaas"

type WebhookProcessingStatus string

const (
	WebhookStatusPending   WebhookProcessingStatus = "pending"
	WebhookStatusProcessed WebhookProcessingStatus = "processed"
	WebhookStatusFailed    WebhookProcessingStatus = "failed"
)

func (s WebhookProcessingStatus) Valid() bool {
	switch s {
	case WebhookStatusPending, WebhookStatusProcessed, WebhookStatusFailed:
		return true
	}
	return false
}

// WebhookEvent stores every provider webhook delivery. EventKey is the
// semantic identity of a delivery and is unique across the table, so at most
// one row exists per (provider, event type, payment) combination.
type WebhookEvent struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	Provider         string                  `gorm:"type:varchar(20);not null;index" json:"provider"`
	EventType        string                  `gorm:"type:varchar(100);not null;index" json:"event_type"`
	EventKey         string                  `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_event_key" json:"event_key"`
	PayloadJSON      string                  `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessingStatus WebhookProcessingStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"processing_status"`
	Attempts         int                     `gorm:"not null;default:0" json:"attempts"`
	ReceivedAt       time.Time               `gorm:"not null;index" json:"received_at"`
	ProcessedAt      *time.Time              `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ErrorMessage     *string                 `gorm:"type:text" json:"error_message,omitempty"`
	UpdatedAt        time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

func (e *WebhookEvent) IsProcessed() bool {
	return e != nil && e.ProcessingStatus == WebhookStatusProcessed
}

func (e *WebhookEvent) IsFailed() bool {
	return e != nil && e.ProcessingStatus == WebhookStatusFailed
}
