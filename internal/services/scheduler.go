package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"farah_app_echo/internal/models"
)

// Task names handled by cmd/worker
const (
	TaskNotifyOwner     = "notify_owner"
	TaskReconcileRefund = "reconcile_refund"
	TaskRefundAudit     = "refund_audit"
	TaskLogInfo         = "log_info"
)

// TaskScheduler queues deferred work for the worker
type TaskScheduler interface {
	Schedule(ctx context.Context, task *models.ScheduledTask) error
}

type GormTaskScheduler struct {
	db *gorm.DB
}

func NewGormTaskScheduler(db *gorm.DB) *GormTaskScheduler {
	return &GormTaskScheduler{db: db}
}

func (s *GormTaskScheduler) Schedule(ctx context.Context, task *models.ScheduledTask) error {
	return s.db.WithContext(ctx).Create(task).Error
}

// BuildScheduledTask converts typed args into the JSON map stored on the task
func BuildScheduledTask(taskName, reference string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var mapArgs map[string]interface{}
	if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into map: %w", err)
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Reference:         reference,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}

// DecodeTaskArgs is the inverse of BuildScheduledTask
func DecodeTaskArgs(arguments map[string]interface{}, dest interface{}) error {
	argsBytes, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}
	if err := json.Unmarshal(argsBytes, dest); err != nil {
		return fmt.Errorf("failed to unmarshal args: %w", err)
	}
	return nil
}

// NotifyOwnerArgs is the payload of a notify_owner task
type NotifyOwnerArgs struct {
	BookingID     string               `json:"booking_id"`
	BookingType   models.BookingKind   `json:"booking_type"`
	ResourceID    string               `json:"resource_id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Amount        string               `json:"amount"`
	Reference     string               `json:"reference"`
}

// ReconcileRefundArgs is the payload of a reconcile_refund task
type ReconcileRefundArgs struct {
	BookingID   string             `json:"booking_id"`
	BookingType models.BookingKind `json:"booking_type"`
	RefundID    string             `json:"refund_id"`
}
