package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlErrDuplicateEntry = 1062

// Repository provides DB operations used by the billing service. Lookups
// return (nil, nil) when the row does not exist.
type Repository interface {
	GetWebhookEventByKey(ctx context.Context, eventKey string) (*models.WebhookEvent, error)
	CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	MarkWebhookEvent(ctx context.Context, id uint, status models.WebhookProcessingStatus, processedAt time.Time, errMsg string) error
	ListWebhookEvents(ctx context.Context, status models.WebhookProcessingStatus, limit int) ([]models.WebhookEvent, error)

	GetBillingOrder(ctx context.Context, id uint) (*models.BillingOrder, error)
	CreateBillingOrder(ctx context.Context, order *models.BillingOrder) error
	UpdateBillingOrder(ctx context.Context, id uint, upd OrderUpdate) error
	ListBillingOrdersByUser(ctx context.Context, userID string) ([]models.BillingOrder, error)

	GetBillingPlan(ctx context.Context, code string) (*models.BillingPlan, error)
	ListBillingPlans(ctx context.Context) ([]models.BillingPlan, error)
	SeedBillingPlans(ctx context.Context, plans []models.BillingPlan) error

	GetUserEntitlement(ctx context.Context, userID string) (*models.UserEntitlement, error)
	ActivateUserEntitlement(ctx context.Context, userID, planCode string, accessUntil time.Time, orderID uint) error
	UpdateUserStatus(ctx context.Context, userID, status string) error

	GetPromoCouponByCode(ctx context.Context, code string) (*models.PromoCoupon, error)
	UpdatePromoCoupon(ctx context.Context, id uint, upd CouponUpdate) error

	GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id uint, upd PaymentUpdate) error
	GetSubscription(ctx context.Context, id uint) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id uint, upd SubscriptionUpdate) error

	// Transaction runs fn against a repository bound to one DB transaction.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type gormRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}

func firstOrNil[T any](tx *gorm.DB) (*T, error) {
	var row T
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx, inTx: true})
	})
}

func (r *gormRepository) GetWebhookEventByKey(ctx context.Context, eventKey string) (*models.WebhookEvent, error) {
	return firstOrNil[models.WebhookEvent](r.db.WithContext(ctx).Where("event_key = ?", eventKey))
}

func (r *gormRepository) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateEventKey
		}
		return err
	}
	return nil
}

func (r *gormRepository) MarkWebhookEvent(ctx context.Context, id uint, status models.WebhookProcessingStatus, processedAt time.Time, errMsg string) error {
	updates := map[string]interface{}{
		"processing_status": status,
		"processed_at":      processedAt,
		"attempts":          gorm.Expr("attempts + 1"),
		"error_message":     nil,
	}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListWebhookEvents(ctx context.Context, status models.WebhookProcessingStatus, limit int) ([]models.WebhookEvent, error) {
	q := r.db.WithContext(ctx).Order("received_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("processing_status = ?", status)
	}
	var events []models.WebhookEvent
	err := q.Find(&events).Error
	return events, err
}

func (r *gormRepository) GetBillingOrder(ctx context.Context, id uint) (*models.BillingOrder, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if r.inTx {
		// Concurrent activations for the same order serialize on this row.
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return firstOrNil[models.BillingOrder](q)
}

func (r *gormRepository) CreateBillingOrder(ctx context.Context, order *models.BillingOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormRepository) UpdateBillingOrder(ctx context.Context, id uint, upd OrderUpdate) error {
	updates := map[string]interface{}{"status": upd.Status}
	if upd.PaidAt != nil {
		updates["paid_at"] = *upd.PaidAt
	}
	return r.db.WithContext(ctx).Model(&models.BillingOrder{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListBillingOrdersByUser(ctx context.Context, userID string) ([]models.BillingOrder, error) {
	var orders []models.BillingOrder
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *gormRepository) GetBillingPlan(ctx context.Context, code string) (*models.BillingPlan, error) {
	return firstOrNil[models.BillingPlan](r.db.WithContext(ctx).Where("code = ?", code))
}

func (r *gormRepository) ListBillingPlans(ctx context.Context) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("duration_days ASC").Find(&plans).Error
	return plans, err
}

func (r *gormRepository) SeedBillingPlans(ctx context.Context, plans []models.BillingPlan) error {
	if len(plans) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&plans).Error
}

func (r *gormRepository) GetUserEntitlement(ctx context.Context, userID string) (*models.UserEntitlement, error) {
	return firstOrNil[models.UserEntitlement](r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *gormRepository) ActivateUserEntitlement(ctx context.Context, userID, planCode string, accessUntil time.Time, orderID uint) error {
	ent := &models.UserEntitlement{
		UserID:             userID,
		PlanCode:           planCode,
		Status:             models.EntitlementStatusActive,
		AccessUntil:        &accessUntil,
		ActivatedByOrderID: &orderID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_code",
			"status",
			"access_until",
			"activated_by_order_id",
			"updated_at",
		}),
	}).Create(ent).Error
}

func (r *gormRepository) UpdateUserStatus(ctx context.Context, userID, status string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("status", status).Error
}

func (r *gormRepository) GetPromoCouponByCode(ctx context.Context, code string) (*models.PromoCoupon, error) {
	return firstOrNil[models.PromoCoupon](r.db.WithContext(ctx).Where("code = ?", code))
}

func (r *gormRepository) UpdatePromoCoupon(ctx context.Context, id uint, upd CouponUpdate) error {
	if upd.IncrementUses == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.PromoCoupon{}).Where("id = ?", id).
		Update("current_uses", gorm.Expr("current_uses + ?", upd.IncrementUses)).Error
}

func (r *gormRepository) GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	return firstOrNil[models.Payment](r.db.WithContext(ctx).Where("provider_payment_id = ?", providerPaymentID))
}

func (r *gormRepository) UpdatePayment(ctx context.Context, id uint, upd PaymentUpdate) error {
	updates := map[string]interface{}{
		"status":  upd.Status,
		"paid_at": nil,
	}
	if upd.PaidAt != nil {
		updates["paid_at"] = *upd.PaidAt
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	return firstOrNil[models.Subscription](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *gormRepository) UpdateSubscription(ctx context.Context, id uint, upd SubscriptionUpdate) error {
	updates := map[string]interface{}{
		"status":              upd.Status,
		"last_payment_status": upd.LastPaymentStatus,
	}
	return r.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}
