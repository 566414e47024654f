package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"farah_app_echo/internal/config"
	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

const (
	moyasarSecretEnv      = "MOYASAR_SECRET_KEY"
	moyasarPublishableEnv = "MOYASAR_PUBLISHABLE_KEY"

	moyasarScriptURL     = "https://cdn.moyasar.com/mpf/1.14.0/moyasar.js"
	moyasarStylesheetURL = "https://cdn.moyasar.com/mpf/1.14.0/moyasar.css"
)

// MoyasarGateway talks to the Moyasar REST API. Amounts on the wire are in
// halalas.
type MoyasarGateway struct {
	baseURL   string
	secret    func() string
	publisher func() string
	client    *http.Client
}

func NewMoyasarGateway(baseURL string) *MoyasarGateway {
	return &MoyasarGateway{
		baseURL:   baseURL,
		secret:    func() string { return config.Secret(moyasarSecretEnv) },
		publisher: func() string { return config.Secret(moyasarPublishableEnv) },
		client:    &http.Client{},
	}
}

type moyasarPayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

func (g *MoyasarGateway) Name() models.PaymentGateway {
	return models.PaymentGatewayMoyasar
}

func (g *MoyasarGateway) Configured() bool {
	return g.secret() != ""
}

// FetchCharge calls GET /v1/payments/{id}
func (g *MoyasarGateway) FetchCharge(ctx context.Context, paymentID string) (*Charge, error) {
	body, err := g.makeRequest(ctx, models.GatewayOperationFetch, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}

	var p moyasarPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode moyasar payment: %w", err)
	}

	return &Charge{
		ID:       p.ID,
		Status:   p.Status,
		Amount:   fromMinorUnits(p.Amount),
		Currency: p.Currency,
		Raw:      body,
	}, nil
}

// RefundCharge calls POST /v1/payments/{id}/refund with the amount to return
func (g *MoyasarGateway) RefundCharge(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error) {
	payload := map[string]int64{"amount": toMinorUnits(amount)}
	body, err := g.makeRequest(ctx, models.GatewayOperationRefund, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentID)+"/refund", payload)
	if err != nil {
		return nil, err
	}

	var p moyasarPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode moyasar refund: %w", err)
	}
	if p.ID == "" {
		return nil, &GatewayError{Operation: models.GatewayOperationRefund, StatusCode: http.StatusOK, Body: string(body)}
	}

	return &RefundResult{ID: p.ID, Raw: body}, nil
}

// Checkout returns the Moyasar payment form configuration. The form is built
// in the browser, nothing is created server side.
func (g *MoyasarGateway) Checkout(ctx context.Context, req CheckoutRequest) (*WidgetConfig, error) {
	key := g.publisher()
	if key == "" {
		return nil, ErrGatewayNotConfigured
	}
	currency := req.Currency
	if currency == "" {
		currency = "SAR"
	}

	return &WidgetConfig{
		Gateway:        g.Name(),
		ScriptURL:      moyasarScriptURL,
		StylesheetURL:  moyasarStylesheetURL,
		PublishableKey: key,
		AmountMinor:    toMinorUnits(req.Amount),
		Currency:       currency,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		Reference:      req.BookingID,
	}, nil
}

func (g *MoyasarGateway) makeRequest(ctx context.Context, op models.GatewayOperation, method, endpoint string, payload interface{}) ([]byte, error) {
	secret := g.secret()
	if secret == "" {
		return nil, ErrGatewayNotConfigured
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(secret, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	result := "error"
	defer func() {
		telemetry.GatewayRequests.WithLabelValues(string(g.Name()), string(op), result).Observe(time.Since(start).Seconds())
	}()

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result = "rejected"
		return nil, &GatewayError{Operation: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	result = "ok"
	return body, nil
}
