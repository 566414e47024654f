package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheckoutAttempt records the widget configuration handed to a browser for
// one checkout of a booking.
type CheckoutAttempt struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	BookingID        string         `gorm:"type:varchar(64);index" json:"booking_id"`
	BookingKind      BookingKind    `gorm:"type:varchar(20)" json:"booking_type"`
	RequesterID      string         `gorm:"type:varchar(128)" json:"requester_id"`
	PaymentGateway   PaymentGateway `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	Reference        string         `gorm:"type:varchar(100);index" json:"reference"`
	RequestMetadata  datatypes.JSON `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata datatypes.JSON `gorm:"type:jsonb" json:"response_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}
