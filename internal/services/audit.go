package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

// AuditLog persists gateway answers and checkout attempts. Failures to write
// are logged and swallowed; auditing never fails a payment request.
type AuditLog interface {
	RecordGatewayEvent(ctx context.Context, event *models.GatewayEvent)
	RecordCheckoutAttempt(ctx context.Context, attempt *models.CheckoutAttempt)
}

type GormAuditLog struct {
	db *gorm.DB
}

func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

func (a *GormAuditLog) RecordGatewayEvent(ctx context.Context, event *models.GatewayEvent) {
	if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
		telemetry.Logger.Warn("failed to record gateway event",
			zap.String("booking_id", event.BookingID),
			zap.String("operation", string(event.Operation)),
			zap.Error(err),
		)
	}
}

func (a *GormAuditLog) RecordCheckoutAttempt(ctx context.Context, attempt *models.CheckoutAttempt) {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		telemetry.Logger.Warn("failed to record checkout attempt",
			zap.String("booking_id", attempt.BookingID),
			zap.Error(err),
		)
	}
}

// gatewayEvent builds an audit row from a gateway call outcome
func gatewayEvent(gateway models.PaymentGateway, op models.GatewayOperation, bookingID, paymentID string, raw []byte, callErr error) *models.GatewayEvent {
	event := &models.GatewayEvent{
		PaymentGateway: gateway,
		Operation:      op,
		BookingID:      bookingID,
		PaymentID:      paymentID,
		Succeeded:      callErr == nil,
	}
	if len(raw) > 0 {
		event.Metadata = datatypes.JSON(raw)
	}
	if callErr != nil {
		msg := callErr.Error()
		event.Error = &msg
	}
	return event
}
