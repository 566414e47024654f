package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

// ErrBookingNotPayable is returned when checkout is requested for a booking
// that is already paid or refunded
var ErrBookingNotPayable = errors.New("booking is not awaiting payment")

// CheckoutService prepares the hosted widget for an unpaid booking
type CheckoutService struct {
	gateway Gateway
	store   BookingStore
	audit   AuditLog
	appURL  string
	logger  *zap.Logger
}

func NewCheckoutService(gateway Gateway, store BookingStore, audit AuditLog, appURL string) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		store:   store,
		audit:   audit,
		appURL:  appURL,
		logger:  telemetry.Logger.Named("checkout"),
	}
}

// CheckoutResult holds the booking being paid and the widget to mount
type CheckoutResult struct {
	Booking *models.Booking
	Widget  *WidgetConfig
}

// CallbackURL is where the gateway sends the browser after submission.
// Moyasar appends id and status itself; Midtrans returns through
// /checkout/return which rewrites its parameters.
func (s *CheckoutService) CallbackURL(bookingID string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	if s.gateway != nil && s.gateway.Name() == models.PaymentGatewayMidtrans {
		return s.appURL + "/checkout/return?" + q.Encode()
	}
	return s.appURL + "/payment-status?" + q.Encode()
}

// Begin loads the booking and asks the gateway for a widget configuration
func (s *CheckoutService) Begin(ctx context.Context, kind models.BookingKind, bookingID string, customer CheckoutCustomer) (*CheckoutResult, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	booking, err := s.store.Find(ctx, kind, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, ErrBookingNotPayable
	}

	req := CheckoutRequest{
		BookingID:   booking.ID,
		BookingKind: kind,
		Description: fmt.Sprintf("%s booking %s", kind, booking.ID),
		Amount:      booking.Amount,
		Currency:    "SAR",
		CallbackURL: s.CallbackURL(booking.ID),
		Customer:    customer,
	}

	widget, err := s.gateway.Checkout(ctx, req)
	if err != nil {
		s.logger.Error("failed to prepare checkout",
			zap.String("booking_id", booking.ID),
			zap.String("gateway", string(s.gateway.Name())),
			zap.Error(err),
		)
		return nil, err
	}

	s.recordAttempt(ctx, booking, req, widget)

	return &CheckoutResult{Booking: booking, Widget: widget}, nil
}

func (s *CheckoutService) recordAttempt(ctx context.Context, booking *models.Booking, req CheckoutRequest, widget *WidgetConfig) {
	if s.audit == nil {
		return
	}
	reqBytes, _ := json.Marshal(req)
	respBytes, _ := json.Marshal(widget)

	s.audit.RecordCheckoutAttempt(ctx, &models.CheckoutAttempt{
		BookingID:        booking.ID,
		BookingKind:      booking.Kind,
		RequesterID:      booking.RequesterID,
		PaymentGateway:   s.gateway.Name(),
		Reference:        widget.Reference,
		RequestMetadata:  datatypes.JSON(reqBytes),
		ResponseMetadata: datatypes.JSON(respBytes),
	})
}
