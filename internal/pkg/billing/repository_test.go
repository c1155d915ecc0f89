package billing

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*gormRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &gormRepository{db: db}, mock
}

func TestRepositoryGetWebhookEventByKeyNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `webhook_events` WHERE event_key = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	event, err := repo.GetWebhookEventByKey(context.Background(), "asaas:PAYMENT_CONFIRMED:pay_1")
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetWebhookEventByKeyFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	rows := sqlmock.NewRows([]string{"id", "provider", "event_type", "event_key", "processing_status", "attempts"}).
		AddRow(3, "asaas", "PAYMENT_CONFIRMED", "asaas:PAYMENT_CONFIRMED:pay_1", "processed", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `webhook_events` WHERE event_key = ?")).WillReturnRows(rows)

	event, err := repo.GetWebhookEventByKey(context.Background(), "asaas:PAYMENT_CONFIRMED:pay_1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, uint(3), event.ID)
	assert.True(t, event.IsProcessed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateWebhookEvent(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `webhook_events`")).
		WillReturnResult(sqlmock.NewResult(7, 1))

	event := &models.WebhookEvent{
		Provider:         models.BillingProviderAsaas,
		EventType:        "PAYMENT_CONFIRMED",
		EventKey:         "asaas:PAYMENT_CONFIRMED:pay_1",
		PayloadJSON:      "{}",
		ProcessingStatus: models.WebhookStatusPending,
		ReceivedAt:       time.Now(),
	}
	require.NoError(t, repo.CreateWebhookEvent(context.Background(), event))
	assert.Equal(t, uint(7), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateWebhookEventDuplicate(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `webhook_events`")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'ux_webhook_events_event_key'"})

	err := repo.CreateWebhookEvent(context.Background(), &models.WebhookEvent{EventKey: "k", ReceivedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicateEventKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateWebhookEventOtherError(t *testing.T) {
	repo, mock := newMockRepository(t)
	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `webhook_events`")).WillReturnError(boom)

	err := repo.CreateWebhookEvent(context.Background(), &models.WebhookEvent{EventKey: "k", ReceivedAt: time.Now()})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateEventKey)
}

func TestRepositoryMarkWebhookEventIncrementsAttempts(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `webhook_events` SET `attempts`=attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkWebhookEvent(context.Background(), 3, models.WebhookStatusFailed, time.Now(), "boom")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdatePromoCouponIsAtomic(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `promo_coupons` SET `current_uses`=current_uses + ?")).
		WithArgs(1, sqlmock.AnyArg(), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePromoCoupon(context.Background(), 9, CouponUpdate{IncrementUses: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdatePromoCouponNoop(t *testing.T) {
	repo, mock := newMockRepository(t)
	require.NoError(t, repo.UpdatePromoCoupon(context.Background(), 9, CouponUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryActivateUserEntitlementUpserts(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec("INSERT INTO `user_entitlements` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.ActivateUserEntitlement(context.Background(), "u1", models.PlanMonthly, time.Now().AddDate(0, 0, 30), 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTransactionLocksOrderRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `billing_orders` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "plan_code", "status"}).AddRow(42, "u1", "monthly", "pending"))
	mock.ExpectCommit()

	var got *models.BillingOrder
	err := repo.Transaction(context.Background(), func(tx Repository) error {
		var err error
		got, err = tx.GetBillingOrder(context.Background(), 42)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTransactionRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepository(t)
	boom := errors.New("activation failed")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `billing_orders` SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.Transaction(context.Background(), func(tx Repository) error {
		now := time.Now()
		if err := tx.UpdateBillingOrder(context.Background(), 42, OrderUpdate{Status: models.OrderStatusPaid, PaidAt: &now}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
