package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// PromoCoupon discounts a plan price. DiscountValue is a percentage for
// percentage coupons and an amount in reais for fixed coupons.
type PromoCoupon struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_promo_coupons_code" json:"code"`
	DiscountType  string          `gorm:"type:varchar(16);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	ValidFrom     *time.Time      `gorm:"type:timestamp;default:null" json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `gorm:"type:timestamp;default:null" json:"valid_until,omitempty"`
	MaxUses       *int            `gorm:"default:null" json:"max_uses,omitempty"`
	CurrentUses   int             `gorm:"not null;default:0" json:"current_uses"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PromoCoupon) TableName() string {
	return "promo_coupons"
}

// NormalizeCouponCode trims and upper-cases a user supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exhausted reports whether the coupon reached its usage cap. A missing or
// zero cap means unlimited.
func (c *PromoCoupon) Exhausted() bool {
	return c.MaxUses != nil && *c.MaxUses > 0 && c.CurrentUses >= *c.MaxUses
}
