package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

type VerifyRequest struct {
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	// BookingType is optional; when set the table probe is skipped
	BookingType string `json:"booking_type,omitempty"`
}

type VerifyResult struct {
	Verified  bool   `json:"verified"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PaymentVerifier asks the gateway for the true status of a charge and
// reconciles it into the booking store.
type PaymentVerifier struct {
	gateway   Gateway
	store     BookingStore
	audit     AuditLog
	events    EventPublisher
	scheduler TaskScheduler
	logger    *zap.Logger
}

func NewPaymentVerifier(gateway Gateway, store BookingStore, audit AuditLog, events EventPublisher, scheduler TaskScheduler) *PaymentVerifier {
	return &PaymentVerifier{
		gateway:   gateway,
		store:     store,
		audit:     audit,
		events:    events,
		scheduler: scheduler,
		logger:    telemetry.Logger.Named("verifier"),
	}
}

// Verify returns a non-nil result for every expected outcome, including an
// unpaid charge. Errors are always *FlowError.
func (v *PaymentVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	paymentID := strings.TrimSpace(req.PaymentID)
	bookingID := strings.TrimSpace(req.BookingID)
	if paymentID == "" || bookingID == "" {
		return v.fail(newFlowError(KindMissingParameters, "Missing payment_id or booking_id", nil))
	}

	var kind models.BookingKind
	if req.BookingType != "" {
		k, err := models.ParseBookingKind(req.BookingType)
		if err != nil {
			return v.fail(newFlowError(KindMissingParameters, "Invalid booking_type", err))
		}
		kind = k
	}

	if v.gateway == nil || !v.gateway.Configured() || v.store == nil {
		return v.fail(newFlowError(KindServiceMisconfigured, "Payment service is not configured", ErrGatewayNotConfigured))
	}

	charge, err := v.gateway.FetchCharge(ctx, paymentID)
	v.recordGatewayEvent(ctx, models.GatewayOperationFetch, bookingID, paymentID, charge, err)
	if err != nil {
		if errors.Is(err, ErrGatewayNotConfigured) {
			return v.fail(newFlowError(KindServiceMisconfigured, "Payment service is not configured", err))
		}
		return v.fail(newFlowError(KindGatewayQueryFailed, "Failed to verify payment", err))
	}

	if charge.Status != ChargeStatusPaid {
		telemetry.PaymentVerifications.WithLabelValues("not_paid").Inc()
		v.logger.Info("charge not paid",
			zap.String("payment_id", paymentID),
			zap.String("booking_id", bookingID),
			zap.String("status", charge.Status),
		)
		return &VerifyResult{Verified: false, Error: "Payment status: " + charge.Status}, nil
	}

	canonicalID := charge.ID
	if canonicalID == "" {
		canonicalID = paymentID
	}

	kind, changed, err := v.markPaid(ctx, kind, bookingID, canonicalID, charge)
	if err != nil {
		return v.fail(newFlowError(KindUpdateFailed, "Failed to update booking", err))
	}

	telemetry.PaymentVerifications.WithLabelValues("verified").Inc()
	v.logger.Info("payment verified",
		zap.String("payment_id", canonicalID),
		zap.String("booking_id", bookingID),
		zap.String("booking_type", string(kind)),
		zap.String("amount", charge.Amount.String()),
	)
	if changed {
		v.announce(ctx, kind, bookingID, canonicalID, charge)
	}

	return &VerifyResult{Verified: true, PaymentID: canonicalID}, nil
}

// markPaid updates the known table, or probes hall then service bookings.
// The amount always comes from the gateway.
func (v *PaymentVerifier) markPaid(ctx context.Context, kind models.BookingKind, bookingID, paymentID string, charge *Charge) (models.BookingKind, bool, error) {
	if kind != "" {
		changed, err := v.store.MarkPaid(ctx, kind, bookingID, paymentID, charge.Amount)
		return kind, changed, err
	}

	changed, err := v.store.MarkPaid(ctx, models.BookingKindHall, bookingID, paymentID, charge.Amount)
	if err == nil {
		return models.BookingKindHall, changed, nil
	}
	if errors.Is(err, ErrInvalidTransition) {
		return models.BookingKindHall, false, err
	}
	if !errors.Is(err, ErrBookingNotFound) {
		v.logger.Warn("hall booking update failed, trying service bookings",
			zap.String("booking_id", bookingID),
			zap.Error(err),
		)
	}

	changed, err = v.store.MarkPaid(ctx, models.BookingKindService, bookingID, paymentID, charge.Amount)
	return models.BookingKindService, changed, err
}

// announce publishes the change and queues the owner notification. Neither
// affects the verification result.
func (v *PaymentVerifier) announce(ctx context.Context, kind models.BookingKind, bookingID, paymentID string, charge *Charge) {
	booking, err := v.store.Find(ctx, kind, bookingID)
	if err != nil {
		v.logger.Warn("failed to reload booking after verification", zap.String("booking_id", bookingID), zap.Error(err))
		return
	}

	if v.events != nil {
		event := PaymentStatusChanged{
			BookingID:     bookingID,
			BookingType:   kind,
			ResourceID:    booking.ResourceID,
			PaymentStatus: models.PaymentStatusPaid,
			PaymentID:     paymentID,
			OccurredAt:    time.Now(),
		}
		if err := v.events.PublishPaymentStatusChanged(ctx, event); err != nil {
			v.logger.Warn("failed to publish payment event", zap.String("booking_id", bookingID), zap.Error(err))
		}
	}

	if v.scheduler != nil {
		args := NotifyOwnerArgs{
			BookingID:     bookingID,
			BookingType:   kind,
			ResourceID:    booking.ResourceID,
			PaymentStatus: models.PaymentStatusPaid,
			Amount:        charge.Amount.StringFixed(2),
			Reference:     paymentID,
		}
		task, err := BuildScheduledTask(TaskNotifyOwner, bookingID, args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
		if err == nil {
			err = v.scheduler.Schedule(ctx, task)
		}
		if err != nil {
			v.logger.Warn("failed to queue owner notification", zap.String("booking_id", bookingID), zap.Error(err))
		}
	}
}

func (v *PaymentVerifier) recordGatewayEvent(ctx context.Context, op models.GatewayOperation, bookingID, paymentID string, charge *Charge, callErr error) {
	if v.audit == nil || v.gateway == nil {
		return
	}
	var raw []byte
	if charge != nil {
		raw = charge.Raw
	}
	v.audit.RecordGatewayEvent(ctx, gatewayEvent(v.gateway.Name(), op, bookingID, paymentID, raw, callErr))
}

func (v *PaymentVerifier) fail(fe *FlowError) (*VerifyResult, error) {
	telemetry.PaymentVerifications.WithLabelValues(string(fe.Kind)).Inc()
	v.logger.Error("payment verification failed",
		zap.String("kind", string(fe.Kind)),
		zap.Error(fe.Err),
	)
	return nil, fe
}
