package models

import "time"

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusRefunded = "REFUNDED"
)

// Payment is a provider charge tied to a recurring subscription.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	SubscriptionID    *uint      `gorm:"default:null;index" json:"subscription_id,omitempty"`
	ProviderPaymentID string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_payments_provider_payment" json:"provider_payment_id"`
	AmountCents       int64      `gorm:"not null;default:0" json:"amount_cents"`
	Status            string     `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
