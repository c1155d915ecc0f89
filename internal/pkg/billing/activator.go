package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Activation summarizes the side effects applied for one payment event.
type Activation struct {
	OrderID               uint
	OrderPaid             bool
	AccessUntil           *time.Time
	CouponIncremented     bool
	PaymentUpdated        bool
	SubscriptionActivated bool
}

// Activator applies an interpreted payment status to orders, entitlements,
// coupons, payments and subscriptions. Every step is guarded so a second run
// for the same input changes nothing.
type Activator struct {
	now func() time.Time
}

func NewActivator(now func() time.Time) *Activator {
	if now == nil {
		now = time.Now
	}
	return &Activator{now: now}
}

// Apply runs the one-time order path and the recurring payment path. Both are
// attempted independently for the same event.
func (a *Activator) Apply(ctx context.Context, repo Repository, status string, payment *WebhookPayment) (*Activation, error) {
	act := &Activation{}
	now := a.now()

	if err := a.applyOrder(ctx, repo, status, payment, now, act); err != nil {
		return act, err
	}
	if err := a.applyPayment(ctx, repo, status, payment, now, act); err != nil {
		return act, err
	}
	return act, nil
}

func (a *Activator) applyOrder(ctx context.Context, repo Repository, status string, payment *WebhookPayment, now time.Time, act *Activation) error {
	userID, orderID, ok := ParseExternalReference(payment.ExternalReference)
	if !ok {
		return nil
	}

	order, err := repo.GetBillingOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order == nil {
		fiberlog.Warnf("[Entitlement] Order %d from payment %s not found", orderID, payment.ID)
		return nil
	}
	act.OrderID = order.ID
	if order.UserID != userID {
		return fmt.Errorf("%w: order %d belongs to another user", ErrInvalidExternalReference, order.ID)
	}
	if status != models.PaymentStatusPaid || order.IsPaid() {
		return nil
	}

	plan, err := repo.GetBillingPlan(ctx, order.PlanCode)
	if err != nil {
		return fmt.Errorf("load plan %s: %w", order.PlanCode, err)
	}
	if plan == nil {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, order.PlanCode)
	}

	if err := repo.UpdateBillingOrder(ctx, order.ID, OrderUpdate{Status: models.OrderStatusPaid, PaidAt: &now}); err != nil {
		return fmt.Errorf("mark order %d paid: %w", order.ID, err)
	}
	act.OrderPaid = true

	until := now.AddDate(0, 0, plan.DurationDays)
	if err := repo.ActivateUserEntitlement(ctx, order.UserID, order.PlanCode, until, order.ID); err != nil {
		return fmt.Errorf("activate entitlement for %s: %w", order.UserID, err)
	}
	act.AccessUntil = &until

	if err := repo.UpdateUserStatus(ctx, order.UserID, models.STATUS_ACTIVE); err != nil {
		return fmt.Errorf("activate user %s: %w", order.UserID, err)
	}

	if order.CouponCode != nil && *order.CouponCode != "" {
		coupon, err := repo.GetPromoCouponByCode(ctx, *order.CouponCode)
		if err != nil {
			return fmt.Errorf("load coupon %s: %w", *order.CouponCode, err)
		}
		if coupon != nil {
			if err := repo.UpdatePromoCoupon(ctx, coupon.ID, CouponUpdate{IncrementUses: 1}); err != nil {
				return fmt.Errorf("count coupon %s: %w", coupon.Code, err)
			}
			act.CouponIncremented = true
		}
	}

	fiberlog.Infof("[Entitlement] Activated plan %s for user %s until %s (order %d)",
		order.PlanCode, order.UserID, until.Format(time.RFC3339), order.ID)
	return nil
}

func (a *Activator) applyPayment(ctx context.Context, repo Repository, status string, payment *WebhookPayment, now time.Time, act *Activation) error {
	p, err := repo.GetPaymentByProviderID(ctx, payment.ID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", payment.ID, err)
	}
	if p == nil {
		return nil
	}

	upd := PaymentUpdate{Status: status}
	if status == models.PaymentStatusPaid {
		upd.PaidAt = &now
		if p.Status == models.PaymentStatusPaid && p.PaidAt != nil {
			upd.PaidAt = p.PaidAt
		}
	}
	if err := repo.UpdatePayment(ctx, p.ID, upd); err != nil {
		return fmt.Errorf("update payment %s: %w", payment.ID, err)
	}
	act.PaymentUpdated = true

	if status != models.PaymentStatusPaid || p.SubscriptionID == nil {
		return nil
	}
	sub, err := repo.GetSubscription(ctx, *p.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription %d: %w", *p.SubscriptionID, err)
	}
	if sub == nil {
		fiberlog.Warnf("[Subscription] Subscription %d for payment %s not found", *p.SubscriptionID, payment.ID)
		return nil
	}
	if err := repo.UpdateSubscription(ctx, sub.ID, SubscriptionUpdate{
		Status:            models.SubscriptionStatusActive,
		LastPaymentStatus: models.PaymentStatusPaid,
	}); err != nil {
		return fmt.Errorf("activate subscription %d: %w", sub.ID, err)
	}
	if err := repo.UpdateUserStatus(ctx, sub.UserID, models.STATUS_ACTIVE); err != nil {
		return fmt.Errorf("activate user %s: %w", sub.UserID, err)
	}
	act.SubscriptionActivated = true
	return nil
}
