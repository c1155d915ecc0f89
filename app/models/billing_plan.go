package models

import "time"

const (
	PlanMonthly    = "monthly"
	PlanSemiannual = "semiannual"
	PlanAnnual     = "annual"
)

// BillingPlan is a purchasable access plan. DurationDays is the access
// window granted from the moment of payment.
type BillingPlan struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_billing_plans_code" json:"code"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	PriceCents   int64     `gorm:"not null" json:"price_cents"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BillingPlan) TableName() string {
	return "billing_plans"
}

// DefaultBillingPlans is the catalog seeded into an empty plans table.
func DefaultBillingPlans() []BillingPlan {
	return []BillingPlan{
		{Code: PlanMonthly, Name: "Mensal", PriceCents: 2990, DurationDays: 30, IsActive: true},
		{Code: PlanSemiannual, Name: "Semestral", PriceCents: 14990, DurationDays: 180, IsActive: true},
		{Code: PlanAnnual, Name: "Anual", PriceCents: 26990, DurationDays: 365, IsActive: true},
	}
}
