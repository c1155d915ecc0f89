package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/entitlements"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	DefaultLockTTL       = 30 * time.Second
	defaultEventsLimit   = 50
	maxEventsLimit       = 200
	maxStoredErrorLength = 2000
)

// Service runs webhook idempotency, payment activation, coupon checks and
// checkout orders for the Asaas integration.
type Service struct {
	repo      Repository
	gate      *Gate
	activator *Activator
	locker    Locker
	lockTTL   time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithLocker enables cross-replica locking of in-flight event keys.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		locker:  noopLocker{},
		lockTTL: DefaultLockTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = NewGate(repo, s.now)
	s.activator = NewActivator(s.now)
	return s
}

// ProcessWebhook records a delivery, skips it when already processed and
// otherwise applies it exactly once. Processing failures are recorded on the
// event and reported in the result; the returned error is reserved for
// failures of the idempotency bookkeeping itself.
func (s *Service) ProcessWebhook(ctx context.Context, provider string, p *WebhookPayload, rawPayload []byte) (*WebhookResult, error) {
	if p == nil || p.Event == "" {
		return nil, ErrMissingEventType
	}
	if p.Payment == nil || p.Payment.ID == "" {
		return nil, ErrMissingPaymentID
	}

	decision, event, err := s.gate.Admit(ctx, provider, p.Event, p.Payment.ID, string(rawPayload))
	if err != nil {
		return nil, err
	}
	res := &WebhookResult{EventKey: event.EventKey, Event: event}

	if decision == DecisionDuplicate {
		fiberlog.Infof("[Webhook] Duplicate event %s skipped", event.EventKey)
		res.Outcome = OutcomeDuplicate
		res.Duplicate = true
		res.ProcessedAt = event.ProcessedAt
		return res, nil
	}

	release, acquired, err := s.locker.Acquire(ctx, lockKey(event.EventKey), s.lockTTL)
	if err != nil {
		fiberlog.Warnf("[Webhook] Lock unavailable for %s, continuing without it: %v", event.EventKey, err)
		release, acquired = func() {}, true
	}
	if !acquired {
		fiberlog.Infof("[Webhook] Event %s is being processed elsewhere", event.EventKey)
		res.Outcome = OutcomeProcessing
		res.Duplicate = true
		return res, nil
	}
	defer release()

	if decision == DecisionRetry {
		fresh, err := s.repo.GetWebhookEventByKey(ctx, event.EventKey)
		if err != nil {
			return nil, fmt.Errorf("reload webhook event %s: %w", event.EventKey, err)
		}
		if fresh.IsProcessed() {
			res.Outcome = OutcomeDuplicate
			res.Duplicate = true
			res.ProcessedAt = fresh.ProcessedAt
			res.Event = fresh
			return res, nil
		}
		fiberlog.Infof("[Webhook] Retrying event %s (status %s, attempts %d)", event.EventKey, event.ProcessingStatus, event.Attempts)
	}

	ignored, procErr := s.apply(ctx, p)
	finishedAt := s.now()
	if finishedAt.Before(event.ReceivedAt) {
		finishedAt = event.ReceivedAt
	}
	if procErr != nil {
		msg := procErr.Error()
		fiberlog.Errorf("[Webhook] Processing %s failed: %v", event.EventKey, procErr)
		if err := s.repo.MarkWebhookEvent(ctx, event.ID, models.WebhookStatusFailed, finishedAt, truncate(msg, maxStoredErrorLength)); err != nil {
			return nil, fmt.Errorf("mark webhook event %s failed: %w", event.EventKey, err)
		}
		res.Outcome = OutcomeError
		res.Message = msg
		return res, nil
	}

	if err := s.repo.MarkWebhookEvent(ctx, event.ID, models.WebhookStatusProcessed, finishedAt, ""); err != nil {
		return nil, fmt.Errorf("mark webhook event %s processed: %w", event.EventKey, err)
	}
	res.Outcome = OutcomeProcessed
	res.Ignored = ignored
	res.ProcessedAt = &finishedAt
	if ignored {
		res.Message = "event type not handled"
	}
	return res, nil
}

// apply interprets the event and runs the activator in one transaction.
// A panic inside activation is reported as a processing error.
func (s *Service) apply(ctx context.Context, p *WebhookPayload) (ignored bool, err error) {
	status, recognized := InterpretEvent(p.Event, p.Payment.Status)
	if !recognized {
		fiberlog.Infof("[Payment] Ignoring event %s for payment %s", p.Event, p.Payment.ID)
		return true, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while applying payment %s: %v", p.Payment.ID, r)
		}
	}()

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		act, err := s.activator.Apply(ctx, tx, status, p.Payment)
		if err != nil {
			return err
		}
		fiberlog.Infow("[Payment] Event applied",
			"event", p.Event,
			"payment_id", p.Payment.ID,
			"status", status,
			"order_paid", act.OrderPaid,
			"payment_updated", act.PaymentUpdated,
			"subscription_activated", act.SubscriptionActivated,
		)
		return nil
	})
	return false, err
}

// ValidateCoupon checks a coupon code and prices it against planCode when
// given. Invalid coupons are reported in the result, not as errors.
func (s *Service) ValidateCoupon(ctx context.Context, code, planCode string) (CouponValidation, error) {
	normalized := models.NormalizeCouponCode(code)
	if normalized == "" {
		return invalidCoupon(msgCouponCodeRequired), ErrCouponCodeRequired
	}

	coupon, err := s.repo.GetPromoCouponByCode(ctx, normalized)
	if err != nil {
		return CouponValidation{}, fmt.Errorf("load coupon %s: %w", normalized, err)
	}

	var plan *models.BillingPlan
	if pc := normalizePlanCode(planCode); pc != "" && coupon != nil {
		plan, err = s.repo.GetBillingPlan(ctx, pc)
		if err != nil {
			return CouponValidation{}, fmt.Errorf("load plan %s: %w", pc, err)
		}
	}

	result := EvaluateCoupon(coupon, plan, s.now())
	if !result.Valid {
		fiberlog.Infof("[Coupon] Rejected %s: %s", normalized, result.Message)
	}
	return result, nil
}

// EnsurePlans seeds the default catalog into an empty plans table and
// returns the active plans.
func (s *Service) EnsurePlans(ctx context.Context) ([]models.BillingPlan, error) {
	plans, err := s.repo.ListBillingPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	if len(plans) > 0 {
		return plans, nil
	}
	if err := s.repo.SeedBillingPlans(ctx, models.DefaultBillingPlans()); err != nil {
		return nil, fmt.Errorf("seed plans: %w", err)
	}
	fiberlog.Infof("[Billing] Seeded default plans")
	return s.repo.ListBillingPlans(ctx)
}

func (s *Service) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	return s.EnsurePlans(ctx)
}

// CheckoutRequest selects a plan by code or storefront slug.
type CheckoutRequest struct {
	PlanCode      string `json:"planCode" validate:"omitempty,max=32"`
	PlanSlug      string `json:"planSlug" validate:"omitempty,max=32"`
	CouponCode    string `json:"couponCode" validate:"omitempty,max=64"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=PIX BOLETO CREDIT_CARD UNDEFINED"`
}

type CheckoutResult struct {
	Order             *models.BillingOrder `json:"order"`
	ExternalReference string               `json:"externalReference"`
	Coupon            *CouponValidation    `json:"coupon,omitempty"`
}

// Checkout creates a pending order for userID with any valid coupon applied.
// The external reference returned is what the provider charge must carry.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	req.PaymentMethod = strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if err := payloadValidator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}
	code := resolvePlanCode(req.PlanCode, req.PlanSlug)
	if code == "" {
		return nil, ErrPlanRequired
	}

	if _, err := s.EnsurePlans(ctx); err != nil {
		return nil, err
	}
	plan, err := s.repo.GetBillingPlan(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", code, err)
	}
	if plan == nil || !plan.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, code)
	}

	order := &models.BillingOrder{
		UserID:             userID,
		PlanCode:           plan.Code,
		OriginalPriceCents: plan.PriceCents,
		Status:             models.OrderStatusPending,
	}
	if req.PaymentMethod != "" {
		pm := req.PaymentMethod
		order.PaymentMethod = &pm
	}

	var applied *CouponValidation
	if couponCode := models.NormalizeCouponCode(req.CouponCode); couponCode != "" {
		coupon, err := s.repo.GetPromoCouponByCode(ctx, couponCode)
		if err != nil {
			return nil, fmt.Errorf("load coupon %s: %w", couponCode, err)
		}
		v := EvaluateCoupon(coupon, plan, s.now())
		if v.Valid {
			order.DiscountCents = *v.DiscountCents
			order.CouponCode = &couponCode
			applied = &v
		} else {
			fiberlog.Infof("[Coupon] Checkout for %s ignored coupon %s: %s", userID, couponCode, v.Message)
		}
	}
	order.FinalPriceCents = models.FinalPrice(order.OriginalPriceCents, order.DiscountCents)

	if err := s.repo.CreateBillingOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	fiberlog.Infof("[Billing] Order %d created for user %s (plan %s, %d cents)", order.ID, userID, plan.Code, order.FinalPriceCents)

	return &CheckoutResult{
		Order:             order,
		ExternalReference: order.ExternalReference(),
		Coupon:            applied,
	}, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]models.BillingOrder, error) {
	return s.repo.ListBillingOrdersByUser(ctx, userID)
}

// AccessStatus summarizes whether the user currently has paid access.
func (s *Service) AccessStatus(ctx context.Context, userID string, isAdmin bool) (entitlements.State, error) {
	if isAdmin {
		return entitlements.Evaluate(true, nil, s.now()), nil
	}
	ent, err := s.repo.GetUserEntitlement(ctx, userID)
	if err != nil {
		return entitlements.State{}, fmt.Errorf("load entitlement for %s: %w", userID, err)
	}
	return entitlements.Evaluate(false, ent, s.now()), nil
}

// ListWebhookEvents returns recent events, newest first, optionally filtered
// by processing status.
func (s *Service) ListWebhookEvents(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error) {
	st := models.WebhookProcessingStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatusFilter, status)
	}
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	return s.repo.ListWebhookEvents(ctx, st, limit)
}

// IsClientError reports whether err came from bad caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPlanRequired) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrInvalidCheckout) ||
		errors.Is(err, ErrInvalidStatusFilter) ||
		errors.Is(err, ErrCouponCodeRequired)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
