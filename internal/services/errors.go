package services

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures of the payment functions. Each kind maps to
// one HTTP status and one client-safe message.
type ErrorKind string

const (
	KindMissingParameters    ErrorKind = "missing_parameters"
	KindServiceMisconfigured ErrorKind = "service_misconfigured"
	KindGatewayQueryFailed   ErrorKind = "gateway_query_failed"
	KindRefundRejected       ErrorKind = "refund_rejected"
	KindBookingNotFound      ErrorKind = "booking_not_found"
	KindNothingToRefund      ErrorKind = "nothing_to_refund"
	KindUpdateFailed         ErrorKind = "update_failed"
	KindRefundInProgress     ErrorKind = "refund_in_progress"
)

// FlowError is returned by the verifier and the refund initiator. Message is
// safe to show to callers; Err holds the detail that only goes to logs.
type FlowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *FlowError) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, services.ErrNothingToRefund)
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Kind == e.Kind
}

// StatusCode is the HTTP status the function boundary answers with
func (e *FlowError) StatusCode() int {
	switch e.Kind {
	case KindMissingParameters, KindGatewayQueryFailed, KindNothingToRefund:
		return http.StatusBadRequest
	case KindBookingNotFound:
		return http.StatusNotFound
	case KindRefundInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is
var (
	ErrMissingParameters    = &FlowError{Kind: KindMissingParameters}
	ErrServiceMisconfigured = &FlowError{Kind: KindServiceMisconfigured}
	ErrGatewayQueryFailed   = &FlowError{Kind: KindGatewayQueryFailed}
	ErrRefundRejected       = &FlowError{Kind: KindRefundRejected}
	ErrNotFound             = &FlowError{Kind: KindBookingNotFound}
	ErrNothingToRefund      = &FlowError{Kind: KindNothingToRefund}
	ErrUpdateFailed         = &FlowError{Kind: KindUpdateFailed}
	ErrRefundInProgress     = &FlowError{Kind: KindRefundInProgress}
)

func newFlowError(kind ErrorKind, message string, err error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Err: err}
}

// AsFlowError extracts a FlowError, wrapping anything else as an update failure
func AsFlowError(err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}
	return newFlowError(KindUpdateFailed, "Internal error", err)
}
