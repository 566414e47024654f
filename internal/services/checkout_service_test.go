package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farah_app_echo/internal/models"
)

func TestCheckoutService_Begin(t *testing.T) {
	gateway := newFakeGateway()
	gateway.widget = &WidgetConfig{Gateway: models.PaymentGatewayMoyasar, Reference: "b1", AmountMinor: 50000}
	store := newMemStore()
	store.put(models.BookingKindHall, models.Booking{ID: "b1", RequesterID: "u1", Amount: decimal.NewFromInt(500), PaymentStatus: models.PaymentStatusUnpaid})
	audit := &recordingAudit{}

	svc := NewCheckoutService(gateway, store, audit, "https://farah.example")
	res, err := svc.Begin(context.Background(), models.BookingKindHall, "b1", CheckoutCustomer{Name: "Noura"})
	require.NoError(t, err)

	assert.Equal(t, "b1", res.Booking.ID)
	assert.Equal(t, "https://farah.example/payment-status?booking_id=b1", gateway.checkoutReq.CallbackURL)
	assert.True(t, gateway.checkoutReq.Amount.Equal(decimal.NewFromInt(500)))

	require.Len(t, audit.attempts, 1)
	assert.Equal(t, "u1", audit.attempts[0].RequesterID)
	assert.Equal(t, "b1", audit.attempts[0].Reference)
}

func TestCheckoutService_BeginRejectsPaid(t *testing.T) {
	store := newMemStore()
	store.put(models.BookingKindService, models.Booking{ID: "b1", PaymentStatus: models.PaymentStatusPaid, PaymentID: strPtr("p1")})

	svc := NewCheckoutService(newFakeGateway(), store, nil, "https://farah.example")
	_, err := svc.Begin(context.Background(), models.BookingKindService, "b1", CheckoutCustomer{})
	assert.ErrorIs(t, err, ErrBookingNotPayable)

	_, err = svc.Begin(context.Background(), models.BookingKindService, "missing", CheckoutCustomer{})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCheckoutService_MidtransCallback(t *testing.T) {
	gateway := newFakeGateway()
	gateway.name = models.PaymentGatewayMidtrans

	svc := NewCheckoutService(gateway, newMemStore(), nil, "https://farah.example")
	assert.Equal(t, "https://farah.example/checkout/return?booking_id=b1", svc.CallbackURL("b1"))
}

func TestBookingService(t *testing.T) {
	svc := NewBookingService(newMemStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBookingInput{Kind: models.BookingKindHall, ResourceID: "hall-1", RequesterID: "u1", Amount: decimal.Zero})
	assert.Error(t, err)

	b, err := svc.Create(ctx, CreateBookingInput{Kind: models.BookingKindHall, ResourceID: "hall-1", RequesterID: "u1", Amount: decimal.RequireFromString("1500.456")})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, b.PaymentStatus)
	assert.True(t, b.Amount.Equal(decimal.RequireFromString("1500.46")))

	got, err := svc.Get(ctx, models.BookingKindHall, b.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = svc.Get(ctx, models.BookingKindHall, b.ID, "u2")
	assert.ErrorIs(t, err, ErrNotBookingRequester)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
