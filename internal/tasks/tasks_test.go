package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendEmail(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeWhatsapp struct {
	chats []string
	texts []string
}

func (w *fakeWhatsapp) SendMessage(ctx context.Context, chatID, text string) error {
	w.chats = append(w.chats, chatID)
	w.texts = append(w.texts, text)
	return nil
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.HallBooking{},
		&models.ServiceBooking{},
		&models.Owner{},
		&models.Refund{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &Deps{
		DB:        db,
		Store:     services.NewGormBookingStore(db),
		Ledger:    services.NewGormRefundLedger(db),
		Scheduler: services.NewGormTaskScheduler(db),
		Events:    services.NopEventPublisher{},
		Mailer:    &fakeMailer{},
		Whatsapp:  &fakeWhatsapp{},
		OpsEmail:  "ops@farah.example",
		Logger:    zap.NewNop(),
	}
}

func schedule(t *testing.T, deps *Deps, name string, args interface{}, maxAttempt int) *models.ScheduledTask {
	t.Helper()
	task, err := services.BuildScheduledTask(name, "", args, time.Now().Add(-time.Minute), nil, models.ScheduledTaskTypeOneTime, maxAttempt)
	require.NoError(t, err)
	require.NoError(t, deps.Scheduler.Schedule(context.Background(), task))
	return task
}

func reload(t *testing.T, deps *Deps, id uint) models.ScheduledTask {
	t.Helper()
	var task models.ScheduledTask
	require.NoError(t, deps.DB.First(&task, id).Error)
	return task
}

func paidBooking(t *testing.T, deps *Deps, kind models.BookingKind, resourceID string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	b := &models.Booking{ResourceID: resourceID, RequesterID: "u1", Amount: decimal.NewFromInt(100)}
	require.NoError(t, deps.Store.Create(ctx, kind, b))
	_, err := deps.Store.MarkPaid(ctx, kind, b.ID, "p-"+b.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	return b
}

func TestRunner_OneTimeTask(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry()
	DefineTasks(registry)
	task := schedule(t, deps, services.TaskLogInfo, map[string]string{"message": "hello"}, 3)

	assert.Equal(t, 1, NewRunner(registry, deps).ProcessDue(context.Background()))

	stored := reload(t, deps, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusDone, stored.Status)
	require.NotNil(t, stored.LastRun)

	var history []models.ScheduledTaskHistory
	require.NoError(t, deps.DB.Where("scheduled_task_id = ?", task.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, "success", history[0].Status)
	assert.Equal(t, "hello", history[0].Result["message"])
}

func TestRunner_UnknownHandler(t *testing.T) {
	deps := newTestDeps(t)
	task := schedule(t, deps, "no_such_task", map[string]string{}, 3)

	NewRunner(NewRegistry(), deps).ProcessDue(context.Background())
	assert.Equal(t, models.ScheduledTaskStatusFailure, reload(t, deps, task.ID).Status)
}

func TestRunner_RetriesUntilMaxAttempt(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry()
	var attempts []int
	registry.Register("flaky", func(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error) {
		attempts = append(attempts, attempt)
		return nil, errors.New("still broken")
	})
	task := schedule(t, deps, "flaky", map[string]string{}, 2)

	clock := time.Now()
	runner := NewRunner(registry, deps)
	runner.now = func() time.Time { return clock }

	runner.ProcessDue(context.Background())
	stored := reload(t, deps, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusActive, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.WithinDuration(t, clock.Add(RetryDelay), stored.Due, time.Second)

	assert.Zero(t, runner.ProcessDue(context.Background()), "not due yet")

	clock = clock.Add(RetryDelay + time.Second)
	runner.ProcessDue(context.Background())
	stored = reload(t, deps, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusFailure, stored.Status)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRunner_RecurringTaskAdvances(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry()
	DefineTasks(registry)

	rule := "FREQ=HOURLY;INTERVAL=1"
	task, err := services.BuildScheduledTask(services.TaskLogInfo, "", map[string]string{"message": "tick"}, time.Now().Add(-90*time.Minute), &rule, models.ScheduledTaskTypeRecurring, 1)
	require.NoError(t, err)
	require.NoError(t, deps.Scheduler.Schedule(context.Background(), task))

	NewRunner(registry, deps).ProcessDue(context.Background())

	stored := reload(t, deps, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusActive, stored.Status)
	assert.True(t, stored.Due.After(time.Now()))
	assert.True(t, stored.Due.Before(time.Now().Add(time.Hour+time.Minute)))
}

func TestNotifyOwner_Email(t *testing.T) {
	deps := newTestDeps(t)
	require.NoError(t, deps.DB.Create(&models.Owner{ResourceID: "hall-1", Name: "Qasr Al Farah", Email: "owner@hall.example", Channel: models.NotificationChannelEmail}).Error)

	task := models.ScheduledTask{MaxAttempt: 3, Arguments: map[string]interface{}{
		"booking_id": "b1", "booking_type": "hall", "resource_id": "hall-1", "payment_status": "paid", "amount": "100.00", "reference": "p1",
	}}
	res, err := NotifyOwnerTask.HandleExecution(context.Background(), deps, task, 1)
	require.NoError(t, err)
	assert.Equal(t, "success", res["status"])

	mailer := deps.Mailer.(*fakeMailer)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"owner@hall.example"}, mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].subject, "New paid booking")
	assert.Contains(t, mailer.sent[0].body, "Amount: 100.00 SAR")
	assert.Contains(t, mailer.sent[0].body, "Reference: p1")
}

func TestNotifyOwner_WhatsappGroup(t *testing.T) {
	deps := newTestDeps(t)
	require.NoError(t, deps.DB.Create(&models.Owner{
		ResourceID:         "photo-1",
		Channel:            models.NotificationChannelWhatsapp,
		WhatsappTargetType: models.WhatsappTargetTypeGroup,
		WhatsappGroupID:    "120363407813232111",
	}).Error)

	task := models.ScheduledTask{Arguments: map[string]interface{}{"booking_id": "b2", "resource_id": "photo-1", "payment_status": "refunded"}}
	_, err := NotifyOwnerTask.HandleExecution(context.Background(), deps, task, 1)
	require.NoError(t, err)

	wa := deps.Whatsapp.(*fakeWhatsapp)
	assert.Equal(t, []string{"120363407813232111@g.us"}, wa.chats)
	assert.Contains(t, wa.texts[0], "refunded")
}

func TestNotifyOwner_Skips(t *testing.T) {
	deps := newTestDeps(t)
	require.NoError(t, deps.DB.Create(&models.Owner{ResourceID: "quiet", Channel: models.NotificationChannelNone}).Error)

	for _, resource := range []string{"unknown", "quiet"} {
		task := models.ScheduledTask{Arguments: map[string]interface{}{"booking_id": "b1", "resource_id": resource}}
		res, err := NotifyOwnerTask.HandleExecution(context.Background(), deps, task, 1)
		require.NoError(t, err)
		assert.Equal(t, "skipped", res["status"])
	}
	assert.Empty(t, deps.Mailer.(*fakeMailer).sent)
}

func TestReconcileRefund(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()
	b := paidBooking(t, deps, models.BookingKindHall, "hall-1")
	require.NoError(t, deps.Ledger.RecordRemoteRefund(ctx, &models.Refund{BookingID: b.ID, BookingKind: models.BookingKindHall, GatewayRefund: "r1"}))

	task := models.ScheduledTask{MaxAttempt: 5, Arguments: map[string]interface{}{"booking_id": b.ID, "booking_type": "hall", "refund_id": "r1"}}
	_, err := ReconcileRefundTask.HandleExecution(ctx, deps, task, 1)
	require.NoError(t, err)

	got, err := deps.Store.Find(ctx, models.BookingKindHall, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)

	var refund models.Refund
	require.NoError(t, deps.DB.Where("gateway_refund = ?", "r1").First(&refund).Error)
	assert.Equal(t, models.RefundStatusCompleted, refund.Status)

	_, err = ReconcileRefundTask.HandleExecution(ctx, deps, task, 2)
	assert.NoError(t, err, "already refunded counts as reconciled")
}

func TestReconcileRefund_AlertsOnLastAttempt(t *testing.T) {
	deps := newTestDeps(t)
	task := models.ScheduledTask{MaxAttempt: 5, Arguments: map[string]interface{}{"booking_id": "gone", "booking_type": "service", "refund_id": "r9"}}

	_, err := ReconcileRefundTask.HandleExecution(context.Background(), deps, task, 4)
	require.Error(t, err)
	assert.Empty(t, deps.Mailer.(*fakeMailer).sent)

	_, err = ReconcileRefundTask.HandleExecution(context.Background(), deps, task, 5)
	require.Error(t, err)

	sent := deps.Mailer.(*fakeMailer).sent
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@farah.example"}, sent[0].to)
	assert.Contains(t, sent[0].body, "r9")
}

func TestRefundAudit(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	done := paidBooking(t, deps, models.BookingKindHall, "hall-1")
	require.NoError(t, deps.Store.MarkRefunded(ctx, models.BookingKindHall, done.ID))
	stuck := paidBooking(t, deps, models.BookingKindService, "photo-1")
	fresh := paidBooking(t, deps, models.BookingKindService, "photo-2")

	require.NoError(t, deps.DB.Create(&models.Refund{CreatedAt: old, BookingID: done.ID, BookingKind: models.BookingKindHall, GatewayRefund: "r-done", Status: models.RefundStatusRemoteSucceeded}).Error)
	require.NoError(t, deps.DB.Create(&models.Refund{CreatedAt: old, BookingID: stuck.ID, BookingKind: models.BookingKindService, GatewayRefund: "r-stuck", Status: models.RefundStatusRemoteSucceeded}).Error)
	require.NoError(t, deps.DB.Create(&models.Refund{BookingID: fresh.ID, BookingKind: models.BookingKindService, GatewayRefund: "r-fresh", Status: models.RefundStatusRemoteSucceeded}).Error)

	res, err := RefundAuditTask.HandleExecution(ctx, deps, models.ScheduledTask{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res["checked"])
	assert.Equal(t, 1, res["completed"])
	assert.Equal(t, 1, res["queued"])

	var queued []models.ScheduledTask
	require.NoError(t, deps.DB.Where("task_name = ?", services.TaskReconcileRefund).Find(&queued).Error)
	require.Len(t, queued, 1)
	assert.Equal(t, stuck.ID, queued[0].Reference)

	res, err = RefundAuditTask.HandleExecution(ctx, deps, models.ScheduledTask{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res["pending"], "does not queue twice")
}

func TestEnsureRefundAudit(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	created, err := EnsureRefundAudit(ctx, deps)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureRefundAudit(ctx, deps)
	require.NoError(t, err)
	assert.False(t, created)

	var audits []models.ScheduledTask
	require.NoError(t, deps.DB.Where("task_name = ?", services.TaskRefundAudit).Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, models.ScheduledTaskTypeRecurring, audits[0].TaskType)
	require.NotNil(t, audits[0].RecurringInterval)
	assert.Equal(t, RefundAuditRule, *audits[0].RecurringInterval)
}
