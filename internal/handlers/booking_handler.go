package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"farah_app_echo/internal/middleware"
	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

type BookingHandler struct {
	bookings *services.BookingService
	appURL   string
}

func NewBookingHandler(bookings *services.BookingService, appURL string) *BookingHandler {
	return &BookingHandler{bookings: bookings, appURL: appURL}
}

type createBookingRequest struct {
	BookingType string          `json:"booking_type" validate:"required,oneof=hall service"`
	ResourceID  string          `json:"resource_id" validate:"required,max=100"`
	EventDate   *time.Time      `json:"event_date"`
	Amount      decimal.Decimal `json:"amount"`
}

type bookingResponse struct {
	models.Booking
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// CreateBooking handles POST /api/bookings for the authenticated requester
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	booking, err := h.bookings.Create(c.Request().Context(), services.CreateBookingInput{
		Kind:        models.BookingKind(req.BookingType),
		ResourceID:  req.ResourceID,
		RequesterID: middleware.UserUID(c),
		EventDate:   req.EventDate,
		Amount:      req.Amount,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, h.response(booking))
}

// GetBooking handles GET /api/bookings/:type/:id
func (h *BookingHandler) GetBooking(c echo.Context) error {
	kind, err := models.ParseBookingKind(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid booking type")
	}

	booking, err := h.bookings.Get(c.Request().Context(), kind, c.Param("id"), middleware.UserUID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotBookingRequester) {
			// indistinguishable from a missing booking
			return echo.NewHTTPError(http.StatusNotFound, "Booking not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, h.response(booking))
}

// ListBookings handles GET /api/bookings
func (h *BookingHandler) ListBookings(c echo.Context) error {
	bookings, err := h.bookings.List(c.Request().Context(), middleware.UserUID(c))
	if err != nil {
		return err
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, h.response(&bookings[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bookings": out})
}

// response attaches the checkout link while the booking is unpaid
func (h *BookingHandler) response(b *models.Booking) bookingResponse {
	res := bookingResponse{Booking: *b}
	if b.PaymentStatus == models.PaymentStatusUnpaid {
		res.CheckoutURL = h.appURL + "/checkout/" + string(b.Kind) + "/" + b.ID
	}
	return res
}
