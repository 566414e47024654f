package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"farah_app_echo/internal/models"
)

// ErrNotBookingRequester is returned when a requester reads someone else's booking
var ErrNotBookingRequester = errors.New("booking belongs to another requester")

// BookingService is the requester-facing side of the booking store
type BookingService struct {
	store BookingStore
}

func NewBookingService(store BookingStore) *BookingService {
	return &BookingService{store: store}
}

type CreateBookingInput struct {
	Kind        models.BookingKind
	ResourceID  string
	RequesterID string
	EventDate   *time.Time
	Amount      decimal.Decimal
}

// Create inserts an unpaid booking
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if !in.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	booking := &models.Booking{
		ResourceID:  in.ResourceID,
		RequesterID: in.RequesterID,
		EventDate:   in.EventDate,
		Amount:      in.Amount.Round(2),
	}
	if err := s.store.Create(ctx, in.Kind, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Get returns the booking if requesterID owns it. An empty requesterID skips
// the ownership check.
func (s *BookingService) Get(ctx context.Context, kind models.BookingKind, id, requesterID string) (*models.Booking, error) {
	booking, err := s.store.Find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && booking.RequesterID != requesterID {
		return nil, ErrNotBookingRequester
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, requesterID string) ([]models.Booking, error) {
	return s.store.ListByRequester(ctx, requesterID)
}
