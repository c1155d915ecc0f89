package models

import (
	"fmt"
	"time"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "PAID"
	OrderStatusFailed     = "failed"
)

// BillingOrder is a single purchase of a plan. Its id travels to the payment
// provider inside the external reference and comes back on webhooks.
type BillingOrder struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PlanCode           string     `gorm:"type:varchar(32);not null;index" json:"plan_code"`
	OriginalPriceCents int64      `gorm:"not null" json:"original_price_cents"`
	DiscountCents      int64      `gorm:"not null;default:0" json:"discount_cents"`
	FinalPriceCents    int64      `gorm:"not null" json:"final_price_cents"`
	CouponCode         *string    `gorm:"type:varchar(64);default:null" json:"coupon_code,omitempty"`
	PaymentMethod      *string    `gorm:"type:varchar(20);default:null" json:"payment_method,omitempty"`
	Status             string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AsaasPaymentID     *string    `gorm:"type:varchar(100);default:null;index" json:"asaas_payment_id,omitempty"`
	AsaasPaymentURL    *string    `gorm:"type:varchar(512);default:null" json:"asaas_payment_url,omitempty"`
	PaidAt             *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BillingOrder) TableName() string {
	return "billing_orders"
}

func (o *BillingOrder) IsPaid() bool {
	return o != nil && o.Status == OrderStatusPaid
}

// ExternalReference renders the "userId|orderId" value sent to the provider.
func (o *BillingOrder) ExternalReference() string {
	return fmt.Sprintf("%s|%d", o.UserID, o.ID)
}

// FinalPrice returns the amount to charge, never below zero.
func FinalPrice(originalCents, discountCents int64) int64 {
	if discountCents >= originalCents {
		return 0
	}
	return originalCents - discountCents
}
