package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"farah_app_echo/internal/services"
)

// State of a checkout page session
type State string

const (
	StateIdle          State = "idle"
	StateWidgetLoading State = "widget-loading"
	StateWidgetReady   State = "widget-ready"
	StateRedirecting   State = "redirecting"
)

var (
	ErrWidgetLoading  = errors.New("checkout widget is already loading")
	ErrWidgetNotReady = errors.New("checkout widget is not ready")
)

// WidgetLoader produces the gateway widget configuration for a booking
type WidgetLoader func(ctx context.Context) (*services.WidgetConfig, error)

// Session is the state of one checkout page. The widget is built at most
// once and each asset URL is emitted at most once.
type Session struct {
	mu        sync.Mutex
	origin    string
	bookingID string
	state     State
	widget    *services.WidgetConfig
	loaded    map[string]struct{}
}

func NewSession(origin, bookingID string) *Session {
	return &Session{
		origin:    strings.TrimRight(origin, "/"),
		bookingID: bookingID,
		state:     StateIdle,
		loaded:    make(map[string]struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mount builds the widget on first call and returns it together with the
// assets not yet emitted in this session. Later calls return the same
// widget and no assets. A failed load returns the session to idle.
func (s *Session) Mount(ctx context.Context, load WidgetLoader) (*services.WidgetConfig, []string, error) {
	s.mu.Lock()
	switch s.state {
	case StateWidgetReady, StateRedirecting:
		w := s.widget
		s.mu.Unlock()
		return w, nil, nil
	case StateWidgetLoading:
		s.mu.Unlock()
		return nil, nil, ErrWidgetLoading
	}
	s.state = StateWidgetLoading
	s.mu.Unlock()

	widget, err := load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		return nil, nil, err
	}
	s.widget = widget
	s.state = StateWidgetReady

	var assets []string
	for _, u := range []string{widget.StylesheetURL, widget.ScriptURL} {
		if s.claimAsset(u) {
			assets = append(assets, u)
		}
	}
	return widget, assets, nil
}

// RequireAsset reports whether url still has to be emitted, marking it as
// emitted.
func (s *Session) RequireAsset(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimAsset(url)
}

func (s *Session) claimAsset(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.loaded[url]; ok {
		return false
	}
	s.loaded[url] = struct{}{}
	return true
}

// Submit is called when the payer submits the widget. It moves the session
// to redirecting and returns the status page URL.
func (s *Session) Submit(paymentID, status string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateWidgetReady && s.state != StateRedirecting {
		return "", ErrWidgetNotReady
	}
	s.state = StateRedirecting
	return RedirectURL(s.origin, s.bookingID, paymentID, status), nil
}

// RedirectURL builds <origin>/payment-status?booking_id=..&id=..&status=..
func RedirectURL(origin, bookingID, paymentID, status string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("id", paymentID)
	q.Set("status", status)
	return strings.TrimRight(origin, "/") + "/payment-status?" + q.Encode()
}
