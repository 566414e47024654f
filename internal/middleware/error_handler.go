package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"farah_app_echo/internal/services"
	"farah_app_echo/internal/telemetry"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// CustomErrorHandler renders errors as {"error": "..."} and logs the cause.
// Internal detail never reaches the body.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	var he *echo.HTTPError
	var fe *services.FlowError
	switch {
	case errors.As(err, &fe):
		code = fe.StatusCode()
		message = fe.Message
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	case errors.Is(err, services.ErrBookingNotFound):
		code = http.StatusNotFound
		message = "Booking not found"
	}

	fields := []zap.Field{
		zap.Int("status", code),
		zap.String("method", c.Request().Method),
		zap.String("path", c.Request().URL.Path),
		zap.Error(err),
	}
	if code >= http.StatusInternalServerError {
		telemetry.Logger.Error("request failed", fields...)
	} else {
		telemetry.Logger.Info("request rejected", fields...)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: message})
	}
	if err != nil {
		telemetry.Logger.Error("failed to write error response", zap.Error(err))
	}
}
