package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"

	"farah_app_echo/internal/config"
	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

const (
	midtransServerKeyEnv = "MIDTRANS_SERVER_KEY"
	midtransClientKeyEnv = "MIDTRANS_CLIENT_KEY"

	// Midtrans settles in whole rupiah
	midtransCurrency = "IDR"
)

// ErrFractionalAmount is returned for amounts the gateway cannot charge or
// refund exactly
var ErrFractionalAmount = errors.New("amount has a fractional part the gateway cannot represent")

// midtransAmount returns amount as whole currency units. Fractions are
// rejected rather than rounded so that what is charged or refunded always
// equals what the booking records.
func midtransAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if !amount.Equal(amount.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrFractionalAmount, amount)
	}
	return amount.IntPart(), nil
}

// MidtransGateway adapts Midtrans (Snap for checkout, Core API for status and
// refunds). The payment id is the Midtrans order id.
type MidtransGateway struct {
	env       midtrans.EnvironmentType
	serverKey func() string
	clientKey func() string
}

func NewMidtransGateway(production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	return &MidtransGateway{
		env:       env,
		serverKey: func() string { return config.Secret(midtransServerKeyEnv) },
		clientKey: func() string { return config.Secret(midtransClientKeyEnv) },
	}
}

func (g *MidtransGateway) Name() models.PaymentGateway {
	return models.PaymentGatewayMidtrans
}

func (g *MidtransGateway) Configured() bool {
	return g.serverKey() != ""
}

func (g *MidtransGateway) coreClient() (*coreapi.Client, error) {
	key := g.serverKey()
	if key == "" {
		return nil, ErrGatewayNotConfigured
	}
	var c coreapi.Client
	c.New(key, g.env)
	return &c, nil
}

// MidtransChargeStatus maps a Midtrans transaction status onto the charge
// vocabulary used by the verifier.
func MidtransChargeStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "settlement":
		return ChargeStatusPaid
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return ChargeStatusPaid
		}
		return "initiated"
	case "pending", "authorize":
		return "initiated"
	case "refund", "partial_refund":
		return "refunded"
	case "deny", "cancel", "expire", "failure":
		return "failed"
	}
	return transactionStatus
}

func (g *MidtransGateway) FetchCharge(ctx context.Context, paymentID string) (*Charge, error) {
	c, err := g.coreClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, mErr := c.CheckTransaction(paymentID)
	if mErr != nil {
		g.observe(models.GatewayOperationFetch, "rejected", start)
		return nil, &GatewayError{Operation: models.GatewayOperationFetch, StatusCode: mErr.GetStatusCode(), Body: mErr.GetMessage()}
	}
	g.observe(models.GatewayOperationFetch, "ok", start)

	amount, err := decimal.NewFromString(resp.GrossAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid midtrans gross_amount %q: %w", resp.GrossAmount, err)
	}
	raw, _ := json.Marshal(resp)

	return &Charge{
		ID:       resp.OrderID,
		Status:   MidtransChargeStatus(resp.TransactionStatus, resp.FraudStatus),
		Amount:   amount,
		Currency: resp.Currency,
		Raw:      raw,
	}, nil
}

func (g *MidtransGateway) RefundCharge(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error) {
	c, err := g.coreClient()
	if err != nil {
		return nil, err
	}
	whole, err := midtransAmount(amount)
	if err != nil {
		return nil, err
	}

	req := &coreapi.RefundReq{
		RefundKey: "refund-" + uuid.NewString(),
		Amount:    whole,
		Reason:    "booking refund",
	}

	start := time.Now()
	resp, mErr := c.RefundTransaction(paymentID, req)
	if mErr != nil {
		g.observe(models.GatewayOperationRefund, "rejected", start)
		return nil, &GatewayError{Operation: models.GatewayOperationRefund, StatusCode: mErr.GetStatusCode(), Body: mErr.GetMessage()}
	}
	g.observe(models.GatewayOperationRefund, "ok", start)

	raw, _ := json.Marshal(resp)
	if resp.StatusCode != "200" {
		return nil, &GatewayError{Operation: models.GatewayOperationRefund, StatusCode: 200, Body: string(raw)}
	}

	id := resp.RefundKey
	if id == "" {
		id = req.RefundKey
	}
	return &RefundResult{ID: id, Raw: raw}, nil
}

// Checkout creates a Snap transaction and returns its token
func (g *MidtransGateway) Checkout(ctx context.Context, req CheckoutRequest) (*WidgetConfig, error) {
	key := g.serverKey()
	if key == "" {
		return nil, ErrGatewayNotConfigured
	}

	gross, err := midtransAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var s snap.Client
	s.New(key, g.env)

	orderID := fmt.Sprintf("booking-%s-%d", req.BookingID, time.Now().Unix())

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.Name,
			Email: req.Customer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("%s-%s", req.BookingKind, req.BookingID),
				Name:  req.Description,
				Price: gross,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: req.CallbackURL,
		},
	}

	start := time.Now()
	resp, mErr := s.CreateTransaction(snapReq)
	if mErr != nil {
		g.observe(models.GatewayOperationCheckout, "rejected", start)
		return nil, fmt.Errorf("midtrans create transaction error: %v", mErr.GetMessage())
	}
	g.observe(models.GatewayOperationCheckout, "ok", start)

	scriptURL := "https://app.sandbox.midtrans.com/snap/snap.js"
	if g.env == midtrans.Production {
		scriptURL = "https://app.midtrans.com/snap/snap.js"
	}

	return &WidgetConfig{
		Gateway:        g.Name(),
		ScriptURL:      scriptURL,
		PublishableKey: g.clientKey(),
		AmountMinor:    gross,
		Currency:       midtransCurrency,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		Token:          resp.Token,
		RedirectURL:    resp.RedirectURL,
		Reference:      orderID,
	}, nil
}

func (g *MidtransGateway) observe(op models.GatewayOperation, result string, start time.Time) {
	telemetry.GatewayRequests.WithLabelValues(string(g.Name()), string(op), result).Observe(time.Since(start).Seconds())
}
