package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"farah_app_echo/internal/models"
)

// ChargeStatusPaid is the only charge status that settles a booking
const ChargeStatusPaid = "paid"

// ErrGatewayNotConfigured is returned when the gateway secret is missing at call time
var ErrGatewayNotConfigured = errors.New("payment gateway secret is not configured")

// Charge is the gateway's view of a payment. Amount is in SAR, not minor units.
type Charge struct {
	ID       string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Raw      []byte
}

// RefundResult is what the gateway answers to an accepted refund
type RefundResult struct {
	ID  string
	Raw []byte
}

// CheckoutRequest describes the payment a hosted widget should collect
type CheckoutRequest struct {
	BookingID   string
	BookingKind models.BookingKind
	Description string
	Amount      decimal.Decimal
	Currency    string
	CallbackURL string
	Customer    CheckoutCustomer
}

type CheckoutCustomer struct {
	Name  string
	Email string
}

// WidgetConfig is everything a page needs to mount the hosted checkout widget
type WidgetConfig struct {
	Gateway        models.PaymentGateway `json:"gateway"`
	ScriptURL      string                `json:"script_url"`
	StylesheetURL  string                `json:"stylesheet_url,omitempty"`
	PublishableKey string                `json:"publishable_key"`
	// AmountMinor is the amount in the gateway's smallest currency unit
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	CallbackURL string `json:"callback_url"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Reference   string `json:"reference"`
}

// GatewayError carries the upstream status and body of a rejected call. It
// is logged, never sent to clients.
type GatewayError struct {
	Operation  models.GatewayOperation
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Gateway is the adapter over the external payment provider
type Gateway interface {
	Name() models.PaymentGateway
	// Configured reports whether the secret credential is available right now
	Configured() bool
	FetchCharge(ctx context.Context, paymentID string) (*Charge, error)
	RefundCharge(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*WidgetConfig, error)
}

// toMinorUnits converts SAR to halalas
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
