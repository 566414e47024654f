package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"farah_app_echo/internal/checkout"
	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
	"farah_app_echo/internal/telemetry"
)

// CheckoutHandler renders the checkout page and normalises gateway returns
// into the status page redirect
type CheckoutHandler struct {
	checkout *services.CheckoutService
	appURL   string
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, appURL string) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkoutService, appURL: appURL}
}

// ShowCheckout renders GET /checkout/:type/:id
func (h *CheckoutHandler) ShowCheckout(c echo.Context) error {
	kind, err := models.ParseBookingKind(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid booking type")
	}
	bookingID := c.Param("id")
	msgs := messagesFor(c)

	var booking *models.Booking
	session := checkout.NewSession(h.appURL, bookingID)
	widget, assets, err := session.Mount(c.Request().Context(), func(ctx context.Context) (*services.WidgetConfig, error) {
		res, err := h.checkout.Begin(ctx, kind, bookingID, services.CheckoutCustomer{
			Name:  c.QueryParam("name"),
			Email: c.QueryParam("email"),
		})
		if err != nil {
			return nil, err
		}
		booking = res.Booking
		return res.Widget, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Booking not found")
		case errors.Is(err, services.ErrBookingNotPayable):
			return echo.NewHTTPError(http.StatusConflict, "Booking is already paid")
		}
		telemetry.Logger.Error("checkout page failed", zap.String("booking_id", bookingID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Payment is temporarily unavailable")
	}

	return c.Render(http.StatusOK, "checkout.html", CheckoutPageData{
		Lang:     msgs.Lang(),
		Dir:      msgs.Dir(),
		Title:    msgs.Get(checkout.MsgCheckoutTitle),
		Msgs:     msgs,
		Booking:  booking,
		Widget:   widget,
		Assets:   assetTags(assets),
		State:    string(session.State()),
		Amount:   booking.Amount.StringFixed(2),
		Currency: widget.Currency,
	})
}

// MidtransReturn handles GET /checkout/return. Midtrans finishes with
// order_id and transaction_status, which become id and status.
func (h *CheckoutHandler) MidtransReturn(c echo.Context) error {
	bookingID := c.QueryParam("booking_id")
	orderID := c.QueryParam("order_id")
	status := services.MidtransChargeStatus(c.QueryParam("transaction_status"), c.QueryParam("fraud_status"))
	if status == "" {
		status = "failed"
	}
	return c.Redirect(http.StatusSeeOther, checkout.RedirectURL(h.appURL, bookingID, orderID, status))
}

// StatusHandler serves the payment status page
type StatusHandler struct {
	page *checkout.StatusPage
}

func NewStatusHandler(page *checkout.StatusPage) *StatusHandler {
	return &StatusHandler{page: page}
}

// ShowStatus renders GET /payment-status
func (h *StatusHandler) ShowStatus(c echo.Context) error {
	msgs := messagesFor(c)
	params := checkout.ParseStatusParams(c.QueryParams())
	view := h.page.Resolve(c.Request().Context(), params, msgs)

	return c.Render(http.StatusOK, "payment_status.html", StatusPageData{
		Lang: msgs.Lang(),
		Dir:  msgs.Dir(),
		Msgs: msgs,
		View: view,
	})
}

func messagesFor(c echo.Context) checkout.Messages {
	return checkout.MessagesFor(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
}

func assetTags(urls []string) []Asset {
	assets := make([]Asset, 0, len(urls))
	for _, u := range urls {
		assets = append(assets, Asset{URL: u, Stylesheet: isStylesheet(u)})
	}
	return assets
}

func isStylesheet(u string) bool {
	return strings.HasSuffix(u, ".css")
}
