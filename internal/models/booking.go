package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingKind tells which table a booking lives in
type BookingKind string

const (
	BookingKindHall    BookingKind = "hall"
	BookingKindService BookingKind = "service"
)

// ParseBookingKind validates a booking_type value coming from a request
func ParseBookingKind(s string) (BookingKind, error) {
	switch BookingKind(s) {
	case BookingKindHall, BookingKindService:
		return BookingKind(s), nil
	}
	return "", fmt.Errorf("invalid booking type %q", s)
}

// Table returns the table holding bookings of this kind
func (k BookingKind) Table() string {
	if k == BookingKindService {
		return "service_bookings"
	}
	return "hall_bookings"
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking is a reservation of a hall or of a service provider. The same
// columns are used by hall_bookings and service_bookings.
//
// PaymentID is set exactly when PaymentStatus is paid or refunded.
type Booking struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ResourceID    string          `gorm:"type:varchar(100);index" json:"resource_id"`
	RequesterID   string          `gorm:"type:varchar(128);index" json:"requester_id"`
	EventDate     *time.Time      `json:"event_date,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);default:'unpaid';index" json:"payment_status"`
	PaymentID     *string         `gorm:"type:varchar(100);index" json:"payment_id"`

	Kind BookingKind `gorm:"-" json:"booking_type"`
}

// BeforeCreate assigns the uuid and normalises the initial payment state
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = PaymentStatusUnpaid
	}
	return nil
}

// Refundable reports whether the booking is in the only state a refund may start from
func (b *Booking) Refundable() bool {
	return b.PaymentStatus == PaymentStatusPaid && b.PaymentID != nil && *b.PaymentID != ""
}

// HallBooking and ServiceBooking exist for migrations only; queries go
// through Booking with an explicit table.
type HallBooking struct {
	Booking
}

func (HallBooking) TableName() string { return BookingKindHall.Table() }

type ServiceBooking struct {
	Booking
}

func (ServiceBooking) TableName() string { return BookingKindService.Table() }
