package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RefundStatus string

const (
	// RefundStatusRemoteSucceeded means the gateway accepted the refund but the
	// booking row has not been moved to refunded yet.
	RefundStatusRemoteSucceeded RefundStatus = "remote_succeeded"
	RefundStatusCompleted       RefundStatus = "completed"
)

// Refund records a refund issued through the gateway for a booking
type Refund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	BookingID      string          `gorm:"type:varchar(64);index" json:"booking_id"`
	BookingKind    BookingKind     `gorm:"type:varchar(20)" json:"booking_type"`
	PaymentID      string          `gorm:"type:varchar(100);index" json:"payment_id"`
	GatewayRefund  string          `gorm:"type:varchar(100);uniqueIndex" json:"refund_id"`
	TotalRefund    decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_refund"`
	PaymentGateway PaymentGateway  `gorm:"type:varchar(50)" json:"payment_gateway"`
	Status         RefundStatus    `gorm:"type:varchar(30);index" json:"status"`
	RefundDate     time.Time       `json:"refund_date"`
}
