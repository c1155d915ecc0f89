package billing

import (
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/shopspring/decimal"
)

const (
	msgCouponCodeRequired = "Código não informado"
	msgCouponInvalid      = "Cupom inválido"
	msgCouponNotYetActive = "Cupom ainda não está ativo"
	msgCouponExpired      = "Cupom expirado"
	msgCouponExhausted    = "Cupom esgotado"
)

var hundred = decimal.NewFromInt(100)

// CouponValidation is the result of checking a coupon against a plan.
type CouponValidation struct {
	Valid         bool     `json:"valid"`
	Code          string   `json:"code,omitempty"`
	DiscountType  string   `json:"discountType,omitempty"`
	DiscountValue *float64 `json:"discountValue,omitempty"`
	DiscountCents *int64   `json:"discountCents,omitempty"`
	Message       string   `json:"message,omitempty"`
}

func invalidCoupon(msg string) CouponValidation {
	return CouponValidation{Valid: false, Message: msg}
}

// CheckCoupon reports whether a coupon may be redeemed at now. The returned
// message is empty when it can.
func CheckCoupon(c *models.PromoCoupon, now time.Time) (bool, string) {
	switch {
	case c == nil || !c.IsActive:
		return false, msgCouponInvalid
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return false, msgCouponNotYetActive
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return false, msgCouponExpired
	case c.Exhausted():
		return false, msgCouponExhausted
	}
	return true, ""
}

// CouponDiscountCents computes the discount for a price in cents, rounded
// down. Fixed coupons carry their value in reais.
func CouponDiscountCents(c *models.PromoCoupon, priceCents int64) int64 {
	var d decimal.Decimal
	switch c.DiscountType {
	case models.DiscountTypePercentage:
		d = decimal.NewFromInt(priceCents).Mul(c.DiscountValue).Div(hundred)
	case models.DiscountTypeFixed:
		d = c.DiscountValue.Mul(hundred)
	default:
		return 0
	}
	cents := d.Floor().IntPart()
	if cents < 0 {
		return 0
	}
	return cents
}

// EvaluateCoupon validates a coupon and, when a plan is known, prices the
// discount against it.
func EvaluateCoupon(c *models.PromoCoupon, plan *models.BillingPlan, now time.Time) CouponValidation {
	if ok, msg := CheckCoupon(c, now); !ok {
		return invalidCoupon(msg)
	}
	value := c.DiscountValue.InexactFloat64()
	var cents int64
	if plan != nil {
		cents = CouponDiscountCents(c, plan.PriceCents)
	}
	return CouponValidation{
		Valid:         true,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: &value,
		DiscountCents: &cents,
	}
}
