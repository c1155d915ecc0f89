package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription is a recurring plan whose charges arrive as Payment rows.
type Subscription struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PlanCode          string    `gorm:"type:varchar(32);not null" json:"plan_code"`
	Status            string    `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	LastPaymentStatus string    `gorm:"type:varchar(32);not null;default:''" json:"last_payment_status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
