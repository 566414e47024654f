package checkout

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"farah_app_echo/internal/services"
	"farah_app_echo/internal/telemetry"
)

// PageState of the payment status page
type PageState string

const (
	PageVerifying PageState = "verifying"
	PageSuccess   PageState = "success"
	PageFailed    PageState = "failed"
)

// Verifier is the part of the payment verifier the status page needs
type Verifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) (*services.VerifyResult, error)
}

// StatusParams are the redirect parameters the gateway sends back
type StatusParams struct {
	PaymentID string
	BookingID string
	Status    string
}

func ParseStatusParams(q url.Values) StatusParams {
	return StatusParams{
		PaymentID: strings.TrimSpace(q.Get("id")),
		BookingID: strings.TrimSpace(q.Get("booking_id")),
		Status:    strings.TrimSpace(q.Get("status")),
	}
}

// StatusView is what the status template renders. Detail is the verifier's
// own error text, shown under the localized body when present.
type StatusView struct {
	State     PageState
	Title     string
	Body      string
	Detail    string
	PaymentID string
	BookingID string
}

type StatusPage struct {
	verifier Verifier
	logger   *zap.Logger
}

func NewStatusPage(verifier Verifier) *StatusPage {
	return &StatusPage{verifier: verifier, logger: telemetry.Logger.Named("status_page")}
}

// Resolve runs the page from verifying to a terminal state. The verifier is
// called at most once, and not at all when an identifier is missing or the
// gateway already reported failure.
func (p *StatusPage) Resolve(ctx context.Context, params StatusParams, msgs Messages) StatusView {
	view := Verifying(msgs)
	view.PaymentID = params.PaymentID
	view.BookingID = params.BookingID

	if params.PaymentID == "" || params.BookingID == "" || params.Status == "failed" {
		return p.finish(view, PageFailed, "", msgs)
	}

	res, err := p.verifier.Verify(ctx, services.VerifyRequest{PaymentID: params.PaymentID, BookingID: params.BookingID})
	if err != nil {
		p.logger.Warn("verification failed on status page",
			zap.String("payment_id", params.PaymentID),
			zap.String("booking_id", params.BookingID),
			zap.Error(err),
		)
		return p.finish(view, PageFailed, "", msgs)
	}
	if res == nil || !res.Verified {
		detail := ""
		if res != nil {
			detail = res.Error
		}
		return p.finish(view, PageFailed, detail, msgs)
	}
	return p.finish(view, PageSuccess, "", msgs)
}

func (p *StatusPage) finish(view StatusView, state PageState, detail string, msgs Messages) StatusView {
	telemetry.StatusPageRenders.WithLabelValues(string(state)).Inc()
	view.State = state
	view.Detail = detail
	switch state {
	case PageSuccess:
		view.Title = msgs.Get(MsgSuccessTitle)
		view.Body = msgs.Get(MsgSuccessBody)
	case PageFailed:
		view.Title = msgs.Get(MsgFailedTitle)
		view.Body = msgs.Get(MsgFailedBody)
	}
	return view
}

// Verifying is the view every page load starts in
func Verifying(msgs Messages) StatusView {
	return StatusView{
		State: PageVerifying,
		Title: msgs.Get(MsgVerifyingTitle),
		Body:  msgs.Get(MsgVerifyingBody),
	}
}
