package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"farah_app_echo/internal/models"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

// BookingStore is the relational home of hall and service bookings. The
// payment fields are written only through MarkPaid and MarkRefunded.
type BookingStore interface {
	Create(ctx context.Context, kind models.BookingKind, booking *models.Booking) error
	Find(ctx context.Context, kind models.BookingKind, id string) (*models.Booking, error)
	// Locate probes hall_bookings, then service_bookings
	Locate(ctx context.Context, id string) (*models.Booking, error)
	ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	// MarkPaid moves unpaid -> paid and reports whether the status changed.
	// Marking a paid booking again with the same payment id is a no-op
	// success; a different payment id is an invalid transition.
	MarkPaid(ctx context.Context, kind models.BookingKind, id, paymentID string, amount decimal.Decimal) (bool, error)
	// MarkRefunded moves paid -> refunded
	MarkRefunded(ctx context.Context, kind models.BookingKind, id string) error
}

type GormBookingStore struct {
	db *gorm.DB
}

func NewGormBookingStore(db *gorm.DB) *GormBookingStore {
	return &GormBookingStore{db: db}
}

func (s *GormBookingStore) Create(ctx context.Context, kind models.BookingKind, booking *models.Booking) error {
	booking.PaymentStatus = models.PaymentStatusUnpaid
	booking.PaymentID = nil
	if err := s.db.WithContext(ctx).Table(kind.Table()).Create(booking).Error; err != nil {
		return err
	}
	booking.Kind = kind
	return nil
}

// Booking ids are uuid columns; postgres rejects anything else with a type
// error instead of an empty result.
func validBookingID(id string) bool {
	return uuid.Validate(id) == nil
}

func (s *GormBookingStore) Find(ctx context.Context, kind models.BookingKind, id string) (*models.Booking, error) {
	if !validBookingID(id) {
		return nil, ErrBookingNotFound
	}
	var booking models.Booking
	err := s.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Take(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	booking.Kind = kind
	return &booking, nil
}

func (s *GormBookingStore) Locate(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.Find(ctx, models.BookingKindHall, id)
	if err == nil || !errors.Is(err, ErrBookingNotFound) {
		return booking, err
	}
	return s.Find(ctx, models.BookingKindService, id)
}

func (s *GormBookingStore) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	var bookings []models.Booking
	for _, kind := range []models.BookingKind{models.BookingKindHall, models.BookingKindService} {
		var rows []models.Booking
		if err := s.db.WithContext(ctx).Table(kind.Table()).
			Where("requester_id = ?", requesterID).
			Order("created_at desc").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].Kind = kind
		}
		bookings = append(bookings, rows...)
	}
	return bookings, nil
}

func (s *GormBookingStore) MarkPaid(ctx context.Context, kind models.BookingKind, id, paymentID string, amount decimal.Decimal) (bool, error) {
	updates := map[string]interface{}{
		"payment_status": models.PaymentStatusPaid,
		"payment_id":     paymentID,
		"amount":         amount,
		"updated_at":     time.Now(),
	}

	err := s.transition(ctx, kind, id, []models.PaymentStatus{models.PaymentStatusUnpaid}, updates)
	if !errors.Is(err, ErrInvalidTransition) {
		return err == nil, err
	}
	return false, s.transition(ctx, kind, id, []models.PaymentStatus{models.PaymentStatusPaid}, updates,
		"payment_id = ?", paymentID)
}

func (s *GormBookingStore) MarkRefunded(ctx context.Context, kind models.BookingKind, id string) error {
	return s.transition(ctx, kind, id,
		[]models.PaymentStatus{models.PaymentStatusPaid},
		map[string]interface{}{
			"payment_status": models.PaymentStatusRefunded,
			"updated_at":     time.Now(),
		})
}

// transition applies updates only when the row is in one of the from states
// and matches the optional extra condition. A zero row count is resolved into
// not found or an invalid transition.
func (s *GormBookingStore) transition(ctx context.Context, kind models.BookingKind, id string, from []models.PaymentStatus, updates map[string]interface{}, cond ...interface{}) error {
	if !validBookingID(id) {
		return ErrBookingNotFound
	}

	query := s.db.WithContext(ctx).Table(kind.Table()).
		Where("id = ? AND payment_status IN ?", id, from)
	if len(cond) > 0 {
		query = query.Where(cond[0], cond[1:]...)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBookingNotFound
	}
	return ErrInvalidTransition
}
