package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

// ReconcileRefundTaskDef re-applies paid -> refunded for a booking whose
// refund the gateway already accepted. The last failed attempt alerts ops.
type ReconcileRefundTaskDef struct{}

func (t *ReconcileRefundTaskDef) TaskID() string {
	return services.TaskReconcileRefund
}

func (t *ReconcileRefundTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error) {
	var args services.ReconcileRefundArgs
	if err := services.DecodeTaskArgs(task.Arguments, &args); err != nil {
		return nil, err
	}

	err := deps.Store.MarkRefunded(ctx, args.BookingType, args.BookingID)
	if errors.Is(err, services.ErrInvalidTransition) {
		// already refunded by an earlier attempt or by hand
		booking, findErr := deps.Store.Find(ctx, args.BookingType, args.BookingID)
		if findErr == nil && booking.PaymentStatus == models.PaymentStatusRefunded {
			err = nil
		}
	}
	if err != nil {
		if attempt >= task.MaxAttempt {
			alertOps(deps, args, err)
		}
		return nil, fmt.Errorf("failed to reconcile refund %s: %w", args.RefundID, err)
	}

	if deps.Ledger != nil {
		if err := deps.Ledger.CompleteRefund(ctx, args.RefundID); err != nil {
			deps.Logger.Warn("failed to complete refund record", zap.String("refund_id", args.RefundID), zap.Error(err))
		}
	}

	if deps.Events != nil {
		event := services.PaymentStatusChanged{
			BookingID:     args.BookingID,
			BookingType:   args.BookingType,
			PaymentStatus: models.PaymentStatusRefunded,
			RefundID:      args.RefundID,
			OccurredAt:    time.Now(),
		}
		if err := deps.Events.PublishPaymentStatusChanged(ctx, event); err != nil {
			deps.Logger.Warn("failed to publish refund event", zap.String("booking_id", args.BookingID), zap.Error(err))
		}
	}

	deps.Logger.Info("refund reconciled", zap.String("booking_id", args.BookingID), zap.String("refund_id", args.RefundID), zap.Int("attempt", attempt))
	return map[string]interface{}{"status": "success", "booking_id": args.BookingID, "refund_id": args.RefundID}, nil
}

// ReconcileRefundTask is the singleton instance of ReconcileRefundTaskDef
var ReconcileRefundTask = &ReconcileRefundTaskDef{}

func alertOps(deps *Deps, args services.ReconcileRefundArgs, cause error) {
	deps.Logger.Error("refund could not be reconciled, manual action required",
		zap.String("booking_id", args.BookingID),
		zap.String("booking_type", string(args.BookingType)),
		zap.String("refund_id", args.RefundID),
		zap.Error(cause),
	)
	if deps.Mailer == nil || deps.OpsEmail == "" {
		return
	}

	body := fmt.Sprintf("The gateway refunded booking %s (%s) with refund %s, but the booking is still marked as paid.\n\nLast error: %v\n",
		args.BookingID, args.BookingType, args.RefundID, cause)
	if err := deps.Mailer.SendEmail([]string{deps.OpsEmail}, "Refund needs manual reconciliation", body); err != nil {
		deps.Logger.Error("failed to send ops alert", zap.Error(err))
	}
}

// refundAuditGrace leaves in-flight refunds to the request that started them
const refundAuditGrace = 15 * time.Minute

// RefundAuditTaskDef is a recurring sweep over refunds stuck in
// remote_succeeded. Refunds whose booking already reads refunded are
// completed; the rest get a reconcile_refund task if none is pending.
type RefundAuditTaskDef struct{}

func (t *RefundAuditTaskDef) TaskID() string {
	return services.TaskRefundAudit
}

func (t *RefundAuditTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error) {
	if deps.Ledger == nil || deps.Scheduler == nil {
		return nil, fmt.Errorf("refund audit needs a ledger and a scheduler")
	}

	var stuck []models.Refund
	cutoff := time.Now().Add(-refundAuditGrace)
	if err := deps.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.RefundStatusRemoteSucceeded, cutoff).
		Find(&stuck).Error; err != nil {
		return nil, fmt.Errorf("failed to load refunds: %w", err)
	}

	completed, queued, pending := 0, 0, 0
	for _, refund := range stuck {
		booking, err := deps.Store.Find(ctx, refund.BookingKind, refund.BookingID)
		if err == nil && booking.PaymentStatus == models.PaymentStatusRefunded {
			if err := deps.Ledger.CompleteRefund(ctx, refund.GatewayRefund); err != nil {
				return nil, err
			}
			completed++
			continue
		}

		var active int64
		if err := deps.DB.WithContext(ctx).Model(&models.ScheduledTask{}).
			Where("task_name = ? AND reference = ? AND status = ?", services.TaskReconcileRefund, refund.BookingID, models.ScheduledTaskStatusActive).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active > 0 {
			pending++
			continue
		}

		args := services.ReconcileRefundArgs{BookingID: refund.BookingID, BookingType: refund.BookingKind, RefundID: refund.GatewayRefund}
		reconcile, err := services.BuildScheduledTask(services.TaskReconcileRefund, refund.BookingID, args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 5)
		if err != nil {
			return nil, err
		}
		if err := deps.Scheduler.Schedule(ctx, reconcile); err != nil {
			return nil, err
		}
		queued++
	}

	return map[string]interface{}{
		"checked":   len(stuck),
		"completed": completed,
		"queued":    queued,
		"pending":   pending,
	}, nil
}

// RefundAuditTask is the singleton instance of RefundAuditTaskDef
var RefundAuditTask = &RefundAuditTaskDef{}

// RefundAuditRule is the recurrence of the refund audit seeded by the worker
const RefundAuditRule = "FREQ=HOURLY;INTERVAL=1"

// EnsureRefundAudit schedules the recurring refund audit unless an active one
// already exists. It reports whether a task was created.
func EnsureRefundAudit(ctx context.Context, deps *Deps) (bool, error) {
	var active int64
	if err := deps.DB.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ?", services.TaskRefundAudit, models.ScheduledTaskStatusActive).
		Count(&active).Error; err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	rule := RefundAuditRule
	task, err := services.BuildScheduledTask(services.TaskRefundAudit, "", map[string]interface{}{}, time.Now(), &rule, models.ScheduledTaskTypeRecurring, 1)
	if err != nil {
		return false, err
	}
	if err := deps.Scheduler.Schedule(ctx, task); err != nil {
		return false, err
	}
	return true, nil
}
