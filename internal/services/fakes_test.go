package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farah_app_echo/internal/models"
)

type fakeGateway struct {
	name         models.PaymentGateway
	configured   bool
	charge       *Charge
	fetchErr     error
	refund       *RefundResult
	refundErr    error
	widget       *WidgetConfig
	fetchCalls   int
	refundCalls  int
	refundAmount decimal.Decimal
	checkoutReq  CheckoutRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{name: models.PaymentGatewayMoyasar, configured: true}
}

func (g *fakeGateway) Name() models.PaymentGateway { return g.name }
func (g *fakeGateway) Configured() bool            { return g.configured }

func (g *fakeGateway) FetchCharge(ctx context.Context, paymentID string) (*Charge, error) {
	g.fetchCalls++
	return g.charge, g.fetchErr
}

func (g *fakeGateway) RefundCharge(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error) {
	g.refundCalls++
	g.refundAmount = amount
	return g.refund, g.refundErr
}

func (g *fakeGateway) Checkout(ctx context.Context, req CheckoutRequest) (*WidgetConfig, error) {
	g.checkoutReq = req
	if g.widget == nil {
		return nil, errors.New("no widget")
	}
	return g.widget, nil
}

// memStore mirrors GormBookingStore's transition rules in memory
type memStore struct {
	mu        sync.Mutex
	rows      map[models.BookingKind]map[string]*models.Booking
	failKind  map[models.BookingKind]error
	refundErr error
}

func newMemStore() *memStore {
	return &memStore{
		rows: map[models.BookingKind]map[string]*models.Booking{
			models.BookingKindHall:    {},
			models.BookingKindService: {},
		},
		failKind: map[models.BookingKind]error{},
	}
}

func (s *memStore) put(kind models.BookingKind, b models.Booking) {
	b.Kind = kind
	s.rows[kind][b.ID] = &b
}

func (s *memStore) get(kind models.BookingKind, id string) *models.Booking {
	return s.rows[kind][id]
}

func (s *memStore) Create(ctx context.Context, kind models.BookingKind, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.PaymentStatus = models.PaymentStatusUnpaid
	b.PaymentID = nil
	b.Kind = kind
	cp := *b
	s.rows[kind][b.ID] = &cp
	return nil
}

func (s *memStore) Find(ctx context.Context, kind models.BookingKind, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[kind][id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) Locate(ctx context.Context, id string) (*models.Booking, error) {
	if b, err := s.Find(ctx, models.BookingKindHall, id); err == nil {
		return b, nil
	}
	return s.Find(ctx, models.BookingKindService, id)
}

func (s *memStore) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, kind := range []models.BookingKind{models.BookingKindHall, models.BookingKindService} {
		for _, b := range s.rows[kind] {
			if b.RequesterID == requesterID {
				out = append(out, *b)
			}
		}
	}
	return out, nil
}

func (s *memStore) MarkPaid(ctx context.Context, kind models.BookingKind, id, paymentID string, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failKind[kind]; err != nil {
		return false, err
	}
	b, ok := s.rows[kind][id]
	if !ok {
		return false, ErrBookingNotFound
	}
	if b.PaymentStatus == models.PaymentStatusPaid && (b.PaymentID == nil || *b.PaymentID != paymentID) {
		return false, ErrInvalidTransition
	}
	switch b.PaymentStatus {
	case models.PaymentStatusUnpaid, models.PaymentStatusPaid:
		changed := b.PaymentStatus == models.PaymentStatusUnpaid
		b.PaymentStatus = models.PaymentStatusPaid
		b.PaymentID = &paymentID
		b.Amount = amount
		return changed, nil
	}
	return false, ErrInvalidTransition
}

func (s *memStore) MarkRefunded(ctx context.Context, kind models.BookingKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundErr != nil {
		return s.refundErr
	}
	b, ok := s.rows[kind][id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.PaymentStatus != models.PaymentStatusPaid {
		return ErrInvalidTransition
	}
	b.PaymentStatus = models.PaymentStatusRefunded
	return nil
}

type recordingAudit struct {
	events   []*models.GatewayEvent
	attempts []*models.CheckoutAttempt
}

func (a *recordingAudit) RecordGatewayEvent(ctx context.Context, event *models.GatewayEvent) {
	a.events = append(a.events, event)
}

func (a *recordingAudit) RecordCheckoutAttempt(ctx context.Context, attempt *models.CheckoutAttempt) {
	a.attempts = append(a.attempts, attempt)
}

type recordingEvents struct {
	published []PaymentStatusChanged
}

func (e *recordingEvents) PublishPaymentStatusChanged(ctx context.Context, event PaymentStatusChanged) error {
	e.published = append(e.published, event)
	return nil
}

type recordingScheduler struct {
	tasks []*models.ScheduledTask
}

func (s *recordingScheduler) Schedule(ctx context.Context, task *models.ScheduledTask) error {
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *recordingScheduler) named(name string) []*models.ScheduledTask {
	var out []*models.ScheduledTask
	for _, t := range s.tasks {
		if t.TaskName == name {
			out = append(out, t)
		}
	}
	return out
}

type memLedger struct {
	refunds map[string]*models.Refund
}

func newMemLedger() *memLedger {
	return &memLedger{refunds: map[string]*models.Refund{}}
}

func (l *memLedger) RecordRemoteRefund(ctx context.Context, refund *models.Refund) error {
	refund.Status = models.RefundStatusRemoteSucceeded
	l.refunds[refund.GatewayRefund] = refund
	return nil
}

func (l *memLedger) CompleteRefund(ctx context.Context, gatewayRefundID string) error {
	if r, ok := l.refunds[gatewayRefundID]; ok {
		r.Status = models.RefundStatusCompleted
	}
	return nil
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return nil, ErrLocked
}

func strPtr(s string) *string { return &s }
