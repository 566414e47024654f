package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"farah_app_echo/internal/services"
)

// PaymentVerifier and RefundProcessor are the services behind the two
// payment functions
type PaymentVerifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) (*services.VerifyResult, error)
}

type RefundProcessor interface {
	Refund(ctx context.Context, req services.RefundRequest) (*services.RefundOutcome, error)
}

// FunctionsHandler serves verify-payment and process-refund. Every outcome,
// failures included, is written as the function's own JSON shape.
type FunctionsHandler struct {
	verifier PaymentVerifier
	refunder RefundProcessor
}

func NewFunctionsHandler(verifier PaymentVerifier, refunder RefundProcessor) *FunctionsHandler {
	return &FunctionsHandler{verifier: verifier, refunder: refunder}
}

// VerifyPayment handles POST /functions/v1/verify-payment
func (h *FunctionsHandler) VerifyPayment(c echo.Context) error {
	var req services.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, services.VerifyResult{Error: "Invalid request body"})
	}

	res, err := h.verifier.Verify(c.Request().Context(), req)
	if err != nil {
		fe := services.AsFlowError(err)
		return c.JSON(fe.StatusCode(), services.VerifyResult{Error: fe.Message})
	}
	return c.JSON(http.StatusOK, res)
}

// ProcessRefund handles POST /functions/v1/process-refund
func (h *FunctionsHandler) ProcessRefund(c echo.Context) error {
	var req services.RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, services.RefundOutcome{Error: "Invalid request body"})
	}

	res, err := h.refunder.Refund(c.Request().Context(), req)
	if err != nil {
		fe := services.AsFlowError(err)
		return c.JSON(fe.StatusCode(), services.RefundOutcome{Error: fe.Message})
	}
	return c.JSON(http.StatusOK, res)
}
