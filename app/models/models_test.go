package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFinalPriceNeverNegative(t *testing.T) {
	assert.Equal(t, int64(2392), FinalPrice(2990, 598))
	assert.Equal(t, int64(0), FinalPrice(2990, 2990))
	assert.Equal(t, int64(0), FinalPrice(2990, 5000))
	assert.Equal(t, int64(2990), FinalPrice(2990, 0))
}

func TestBillingOrderExternalReference(t *testing.T) {
	o := &BillingOrder{ID: 42, UserID: "user-7"}
	assert.Equal(t, "user-7|42", o.ExternalReference())
}

func TestUserEntitlementInForce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&UserEntitlement{Status: EntitlementStatusActive, AccessUntil: &future}).InForce(now))
	assert.False(t, (&UserEntitlement{Status: EntitlementStatusActive, AccessUntil: &past}).InForce(now))
	assert.False(t, (&UserEntitlement{Status: EntitlementStatusInactive, AccessUntil: &future}).InForce(now))
	assert.False(t, (&UserEntitlement{Status: EntitlementStatusActive}).InForce(now))

	var missing *UserEntitlement
	assert.False(t, missing.InForce(now))
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "PROMO20", NormalizeCouponCode("  promo20 "))
	assert.Equal(t, "", NormalizeCouponCode("   "))
}

func TestPromoCouponExhausted(t *testing.T) {
	limit := 3
	c := &PromoCoupon{MaxUses: &limit, CurrentUses: 2}
	assert.False(t, c.Exhausted())
	c.CurrentUses = 3
	assert.True(t, c.Exhausted())

	unlimited := &PromoCoupon{CurrentUses: 1000}
	assert.False(t, unlimited.Exhausted())

	zero := 0
	assert.False(t, (&PromoCoupon{MaxUses: &zero, CurrentUses: 5}).Exhausted())
}

func TestDefaultBillingPlans(t *testing.T) {
	plans := DefaultBillingPlans()
	byCode := map[string]BillingPlan{}
	for _, p := range plans {
		byCode[p.Code] = p
	}
	assert.Equal(t, 30, byCode[PlanMonthly].DurationDays)
	assert.Equal(t, 180, byCode[PlanSemiannual].DurationDays)
	assert.Equal(t, 365, byCode[PlanAnnual].DurationDays)
	assert.Equal(t, int64(2990), byCode[PlanMonthly].PriceCents)
}

func TestWebhookProcessingStatusValid(t *testing.T) {
	assert.True(t, WebhookStatusPending.Valid())
	assert.True(t, WebhookStatusProcessed.Valid())
	assert.True(t, WebhookStatusFailed.Valid())
	assert.False(t, WebhookProcessingStatus("done").Valid())
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: ROLE_ADMIN}).IsAdmin())
	assert.False(t, (&User{Role: ROLE_USER}).IsAdmin())
	assert.False(t, (*User)(nil).IsAdmin())
}
