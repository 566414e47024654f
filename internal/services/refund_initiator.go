package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

const refundLockTTL = time.Minute

type RefundRequest struct {
	BookingID   string `json:"booking_id"`
	BookingType string `json:"booking_type"`
}

type RefundOutcome struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RefundLedger tracks refunds between the gateway accepting them and the
// booking row reflecting them.
type RefundLedger interface {
	RecordRemoteRefund(ctx context.Context, refund *models.Refund) error
	CompleteRefund(ctx context.Context, gatewayRefundID string) error
}

type GormRefundLedger struct {
	db *gorm.DB
}

func NewGormRefundLedger(db *gorm.DB) *GormRefundLedger {
	return &GormRefundLedger{db: db}
}

func (l *GormRefundLedger) RecordRemoteRefund(ctx context.Context, refund *models.Refund) error {
	refund.Status = models.RefundStatusRemoteSucceeded
	return l.db.WithContext(ctx).Create(refund).Error
}

func (l *GormRefundLedger) CompleteRefund(ctx context.Context, gatewayRefundID string) error {
	return l.db.WithContext(ctx).Model(&models.Refund{}).
		Where("gateway_refund = ?", gatewayRefundID).
		Update("status", models.RefundStatusCompleted).Error
}

// RefundInitiator returns the money of a paid booking through the gateway
// and moves the booking to refunded.
type RefundInitiator struct {
	gateway   Gateway
	store     BookingStore
	ledger    RefundLedger
	locker    Locker
	audit     AuditLog
	events    EventPublisher
	scheduler TaskScheduler
	logger    *zap.Logger
}

type RefundInitiatorDeps struct {
	Gateway   Gateway
	Store     BookingStore
	Ledger    RefundLedger
	Locker    Locker
	Audit     AuditLog
	Events    EventPublisher
	Scheduler TaskScheduler
}

func NewRefundInitiator(deps RefundInitiatorDeps) *RefundInitiator {
	locker := deps.Locker
	if locker == nil {
		locker = NopLocker{}
	}
	return &RefundInitiator{
		gateway:   deps.Gateway,
		store:     deps.Store,
		ledger:    deps.Ledger,
		locker:    locker,
		audit:     deps.Audit,
		events:    deps.Events,
		scheduler: deps.Scheduler,
		logger:    telemetry.Logger.Named("refund"),
	}
}

// Refund only starts from the paid state; the gateway is not called
// otherwise.
func (r *RefundInitiator) Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" || req.BookingType == "" {
		return r.fail(newFlowError(KindMissingParameters, "Missing booking_id or booking_type", nil))
	}
	kind, err := models.ParseBookingKind(req.BookingType)
	if err != nil {
		return r.fail(newFlowError(KindMissingParameters, "Invalid booking_type", err))
	}

	if r.gateway == nil || !r.gateway.Configured() || r.store == nil {
		return r.fail(newFlowError(KindServiceMisconfigured, "Payment service is not configured", ErrGatewayNotConfigured))
	}

	release, err := r.locker.Lock(ctx, "refund_lock:"+bookingID, refundLockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return r.fail(newFlowError(KindRefundInProgress, "A refund for this booking is already in progress", err))
		}
		// a broken lock backend must not block refunds
		r.logger.Warn("refund lock unavailable", zap.String("booking_id", bookingID), zap.Error(err))
		release = func() {}
	}
	defer release()

	booking, err := r.store.Find(ctx, kind, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return r.fail(newFlowError(KindBookingNotFound, "Booking not found", err))
		}
		return r.fail(newFlowError(KindUpdateFailed, "Failed to load booking", err))
	}

	if !booking.Refundable() {
		return r.fail(newFlowError(KindNothingToRefund, "No paid payment to refund", nil))
	}
	paymentID := *booking.PaymentID

	result, err := r.gateway.RefundCharge(ctx, paymentID, booking.Amount)
	r.recordGatewayEvent(ctx, bookingID, paymentID, result, err)
	if err != nil {
		if errors.Is(err, ErrGatewayNotConfigured) {
			return r.fail(newFlowError(KindServiceMisconfigured, "Payment service is not configured", err))
		}
		return r.fail(newFlowError(KindRefundRejected, "Refund failed", err))
	}

	if r.ledger != nil {
		refund := &models.Refund{
			BookingID:      bookingID,
			BookingKind:    kind,
			PaymentID:      paymentID,
			GatewayRefund:  result.ID,
			TotalRefund:    booking.Amount,
			PaymentGateway: r.gateway.Name(),
			RefundDate:     time.Now(),
		}
		if err := r.ledger.RecordRemoteRefund(ctx, refund); err != nil {
			r.logger.Error("failed to record remote refund", zap.String("booking_id", bookingID), zap.String("refund_id", result.ID), zap.Error(err))
		}
	}

	if err := r.store.MarkRefunded(ctx, kind, bookingID); err != nil {
		r.queueReconciliation(ctx, kind, bookingID, result.ID)
		return r.fail(newFlowError(KindUpdateFailed, "Failed to update booking", err))
	}

	if r.ledger != nil {
		if err := r.ledger.CompleteRefund(ctx, result.ID); err != nil {
			r.logger.Warn("failed to complete refund record", zap.String("refund_id", result.ID), zap.Error(err))
		}
	}

	telemetry.Refunds.WithLabelValues("refunded").Inc()
	r.logger.Info("booking refunded",
		zap.String("booking_id", bookingID),
		zap.String("booking_type", string(kind)),
		zap.String("payment_id", paymentID),
		zap.String("refund_id", result.ID),
	)
	r.announce(ctx, booking, result.ID)

	return &RefundOutcome{Success: true, RefundID: result.ID}, nil
}

// queueReconciliation hands a refunded-remotely, paid-locally booking to the
// worker, which retries the local transition.
func (r *RefundInitiator) queueReconciliation(ctx context.Context, kind models.BookingKind, bookingID, refundID string) {
	r.logger.Error("refund succeeded at gateway but booking update failed",
		zap.String("booking_id", bookingID),
		zap.String("refund_id", refundID),
	)
	if r.scheduler == nil {
		return
	}
	args := ReconcileRefundArgs{BookingID: bookingID, BookingType: kind, RefundID: refundID}
	task, err := BuildScheduledTask(TaskReconcileRefund, bookingID, args, time.Now().Add(time.Minute), nil, models.ScheduledTaskTypeOneTime, 5)
	if err == nil {
		err = r.scheduler.Schedule(ctx, task)
	}
	if err != nil {
		r.logger.Error("failed to queue refund reconciliation", zap.String("booking_id", bookingID), zap.Error(err))
	}
}

func (r *RefundInitiator) announce(ctx context.Context, booking *models.Booking, refundID string) {
	if r.events != nil {
		event := PaymentStatusChanged{
			BookingID:     booking.ID,
			BookingType:   booking.Kind,
			ResourceID:    booking.ResourceID,
			PaymentStatus: models.PaymentStatusRefunded,
			PaymentID:     *booking.PaymentID,
			RefundID:      refundID,
			OccurredAt:    time.Now(),
		}
		if err := r.events.PublishPaymentStatusChanged(ctx, event); err != nil {
			r.logger.Warn("failed to publish refund event", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}

	if r.scheduler != nil {
		args := NotifyOwnerArgs{
			BookingID:     booking.ID,
			BookingType:   booking.Kind,
			ResourceID:    booking.ResourceID,
			PaymentStatus: models.PaymentStatusRefunded,
			Amount:        booking.Amount.StringFixed(2),
			Reference:     refundID,
		}
		task, err := BuildScheduledTask(TaskNotifyOwner, booking.ID, args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
		if err == nil {
			err = r.scheduler.Schedule(ctx, task)
		}
		if err != nil {
			r.logger.Warn("failed to queue owner notification", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
}

func (r *RefundInitiator) recordGatewayEvent(ctx context.Context, bookingID, paymentID string, result *RefundResult, callErr error) {
	if r.audit == nil {
		return
	}
	var raw []byte
	if result != nil {
		raw = result.Raw
	}
	r.audit.RecordGatewayEvent(ctx, gatewayEvent(r.gateway.Name(), models.GatewayOperationRefund, bookingID, paymentID, raw, callErr))
}

func (r *RefundInitiator) fail(fe *FlowError) (*RefundOutcome, error) {
	telemetry.Refunds.WithLabelValues(string(fe.Kind)).Inc()
	r.logger.Error("refund failed",
		zap.String("kind", string(fe.Kind)),
		zap.Error(fe.Err),
	)
	return nil, fe
}
