// Package billingtest provides in-memory billing storage for tests.
package billingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
)

type state struct {
	events        map[string]models.WebhookEvent
	orders        map[uint]models.BillingOrder
	plans         map[string]models.BillingPlan
	entitlements  map[string]models.UserEntitlement
	userStatus    map[string]string
	coupons       map[string]models.PromoCoupon
	payments      map[string]models.Payment
	subscriptions map[uint]models.Subscription
	nextID        uint
}

func (s *state) clone() *state {
	c := &state{
		events:        make(map[string]models.WebhookEvent, len(s.events)),
		orders:        make(map[uint]models.BillingOrder, len(s.orders)),
		plans:         make(map[string]models.BillingPlan, len(s.plans)),
		entitlements:  make(map[string]models.UserEntitlement, len(s.entitlements)),
		userStatus:    make(map[string]string, len(s.userStatus)),
		coupons:       make(map[string]models.PromoCoupon, len(s.coupons)),
		payments:      make(map[string]models.Payment, len(s.payments)),
		subscriptions: make(map[uint]models.Subscription, len(s.subscriptions)),
		nextID:        s.nextID,
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.entitlements {
		c.entitlements[k] = v
	}
	for k, v := range s.userStatus {
		c.userStatus[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	return c
}

// MemoryRepository implements billing.Repository in memory. Transactions are
// serialized and rolled back on error.
type MemoryRepository struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	fail map[string]error

	// BeforeCreateEvent, when set, runs before an event row is inserted.
	BeforeCreateEvent func(key string)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		st: &state{
			events:        map[string]models.WebhookEvent{},
			orders:        map[uint]models.BillingOrder{},
			plans:         map[string]models.BillingPlan{},
			entitlements:  map[string]models.UserEntitlement{},
			userStatus:    map[string]string{},
			coupons:       map[string]models.PromoCoupon{},
			payments:      map[string]models.Payment{},
			subscriptions: map[uint]models.Subscription{},
		},
		fail: map[string]error{},
	}
}

// FailOn makes every call of the named method return err until cleared
// with a nil err.
func (m *MemoryRepository) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

func (m *MemoryRepository) lock(method string) error {
	m.mu.Lock()
	if err := m.fail[method]; err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryRepository) id() uint {
	m.st.nextID++
	return m.st.nextID
}

// Seed helpers.

func (m *MemoryRepository) AddPlan(p models.BillingPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.st.plans[p.Code] = p
}

func (m *MemoryRepository) AddOrder(o models.BillingOrder) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == 0 {
		o.ID = m.id()
	}
	m.st.orders[o.ID] = o
	return o.ID
}

func (m *MemoryRepository) AddCoupon(c models.PromoCoupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	}
	m.st.coupons[c.Code] = c
}

func (m *MemoryRepository) AddPayment(p models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.st.payments[p.ProviderPaymentID] = p
}

func (m *MemoryRepository) AddSubscription(s models.Subscription) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	m.st.subscriptions[s.ID] = s
	return s.ID
}

func (m *MemoryRepository) AddEvent(e models.WebhookEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.id()
	}
	m.st.events[e.EventKey] = e
}

// Inspection helpers.

func (m *MemoryRepository) Event(key string) (models.WebhookEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.st.events[key]
	return e, ok
}

func (m *MemoryRepository) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.events)
}

func (m *MemoryRepository) Order(id uint) (models.BillingOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	return o, ok
}

func (m *MemoryRepository) Coupon(code string) (models.PromoCoupon, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.st.coupons[code]
	return c, ok
}

func (m *MemoryRepository) Entitlement(userID string) (models.UserEntitlement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.st.entitlements[userID]
	return e, ok
}

func (m *MemoryRepository) UserStatus(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.userStatus[userID]
}

func (m *MemoryRepository) Payment(providerID string) (models.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.payments[providerID]
	return p, ok
}

func (m *MemoryRepository) Subscription(id uint) (models.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.subscriptions[id]
	return s, ok
}

func (m *MemoryRepository) Transaction(ctx context.Context, fn func(tx billing.Repository) error) error {
	if err := m.lock("Transaction"); err != nil {
		return err
	}
	m.mu.Unlock()

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryRepository) GetWebhookEventByKey(ctx context.Context, eventKey string) (*models.WebhookEvent, error) {
	if err := m.lock("GetWebhookEventByKey"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	e, ok := m.st.events[eventKey]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryRepository) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	if m.BeforeCreateEvent != nil {
		m.BeforeCreateEvent(event.EventKey)
	}
	if err := m.lock("CreateWebhookEvent"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	if _, ok := m.st.events[event.EventKey]; ok {
		return billing.ErrDuplicateEventKey
	}
	event.ID = m.id()
	event.UpdatedAt = event.ReceivedAt
	m.st.events[event.EventKey] = *event
	return nil
}

func (m *MemoryRepository) MarkWebhookEvent(ctx context.Context, id uint, status models.WebhookProcessingStatus, processedAt time.Time, errMsg string) error {
	if err := m.lock("MarkWebhookEvent"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for k, e := range m.st.events {
		if e.ID != id {
			continue
		}
		e.ProcessingStatus = status
		at := processedAt
		e.ProcessedAt = &at
		e.Attempts++
		e.ErrorMessage = nil
		if errMsg != "" {
			msg := errMsg
			e.ErrorMessage = &msg
		}
		m.st.events[k] = e
	}
	return nil
}

func (m *MemoryRepository) ListWebhookEvents(ctx context.Context, status models.WebhookProcessingStatus, limit int) ([]models.WebhookEvent, error) {
	if err := m.lock("ListWebhookEvents"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]models.WebhookEvent, 0, len(m.st.events))
	for _, e := range m.st.events {
		if status != "" && e.ProcessingStatus != status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) GetBillingOrder(ctx context.Context, id uint) (*models.BillingOrder, error) {
	if err := m.lock("GetBillingOrder"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MemoryRepository) CreateBillingOrder(ctx context.Context, order *models.BillingOrder) error {
	if err := m.lock("CreateBillingOrder"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	order.ID = m.id()
	m.st.orders[order.ID] = *order
	return nil
}

func (m *MemoryRepository) UpdateBillingOrder(ctx context.Context, id uint, upd billing.OrderUpdate) error {
	if err := m.lock("UpdateBillingOrder"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return nil
	}
	o.Status = upd.Status
	if upd.PaidAt != nil {
		at := *upd.PaidAt
		o.PaidAt = &at
	}
	m.st.orders[id] = o
	return nil
}

func (m *MemoryRepository) ListBillingOrdersByUser(ctx context.Context, userID string) ([]models.BillingOrder, error) {
	if err := m.lock("ListBillingOrdersByUser"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []models.BillingOrder
	for _, o := range m.st.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryRepository) GetBillingPlan(ctx context.Context, code string) (*models.BillingPlan, error) {
	if err := m.lock("GetBillingPlan"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	p, ok := m.st.plans[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryRepository) ListBillingPlans(ctx context.Context) ([]models.BillingPlan, error) {
	if err := m.lock("ListBillingPlans"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []models.BillingPlan
	for _, p := range m.st.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DurationDays < out[j].DurationDays })
	return out, nil
}

func (m *MemoryRepository) SeedBillingPlans(ctx context.Context, plans []models.BillingPlan) error {
	if err := m.lock("SeedBillingPlans"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for _, p := range plans {
		if _, ok := m.st.plans[p.Code]; ok {
			continue
		}
		p.ID = m.id()
		m.st.plans[p.Code] = p
	}
	return nil
}

func (m *MemoryRepository) GetUserEntitlement(ctx context.Context, userID string) (*models.UserEntitlement, error) {
	if err := m.lock("GetUserEntitlement"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	e, ok := m.st.entitlements[userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryRepository) ActivateUserEntitlement(ctx context.Context, userID, planCode string, accessUntil time.Time, orderID uint) error {
	if err := m.lock("ActivateUserEntitlement"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	e, ok := m.st.entitlements[userID]
	if !ok {
		e = models.UserEntitlement{ID: m.id(), UserID: userID}
	}
	until := accessUntil
	oid := orderID
	e.PlanCode = planCode
	e.Status = models.EntitlementStatusActive
	e.AccessUntil = &until
	e.ActivatedByOrderID = &oid
	m.st.entitlements[userID] = e
	return nil
}

func (m *MemoryRepository) UpdateUserStatus(ctx context.Context, userID, status string) error {
	if err := m.lock("UpdateUserStatus"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	m.st.userStatus[userID] = status
	return nil
}

func (m *MemoryRepository) GetPromoCouponByCode(ctx context.Context, code string) (*models.PromoCoupon, error) {
	if err := m.lock("GetPromoCouponByCode"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	c, ok := m.st.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryRepository) UpdatePromoCoupon(ctx context.Context, id uint, upd billing.CouponUpdate) error {
	if err := m.lock("UpdatePromoCoupon"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for code, c := range m.st.coupons {
		if c.ID != id {
			continue
		}
		c.CurrentUses += upd.IncrementUses
		m.st.coupons[code] = c
	}
	return nil
}

func (m *MemoryRepository) GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	if err := m.lock("GetPaymentByProviderID"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	p, ok := m.st.payments[providerPaymentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryRepository) UpdatePayment(ctx context.Context, id uint, upd billing.PaymentUpdate) error {
	if err := m.lock("UpdatePayment"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for k, p := range m.st.payments {
		if p.ID != id {
			continue
		}
		p.Status = upd.Status
		p.PaidAt = nil
		if upd.PaidAt != nil {
			at := *upd.PaidAt
			p.PaidAt = &at
		}
		m.st.payments[k] = p
	}
	return nil
}

func (m *MemoryRepository) GetSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	if err := m.lock("GetSubscription"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	s, ok := m.st.subscriptions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) UpdateSubscription(ctx context.Context, id uint, upd billing.SubscriptionUpdate) error {
	if err := m.lock("UpdateSubscription"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	s, ok := m.st.subscriptions[id]
	if !ok {
		return nil
	}
	s.Status = upd.Status
	s.LastPaymentStatus = upd.LastPaymentStatus
	m.st.subscriptions[id] = s
	return nil
}

var _ billing.Repository = (*MemoryRepository)(nil)
