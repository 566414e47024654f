package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentGateway string

const (
	PaymentGatewayMoyasar  PaymentGateway = "moyasar"
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
)

type GatewayOperation string

const (
	GatewayOperationFetch    GatewayOperation = "fetch_charge"
	GatewayOperationRefund   GatewayOperation = "refund"
	GatewayOperationCheckout GatewayOperation = "checkout"
)

// GatewayEvent keeps the raw gateway answer for every call made on behalf of
// a booking, for support and manual reconciliation.
type GatewayEvent struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	PaymentGateway PaymentGateway   `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	Operation      GatewayOperation `gorm:"type:varchar(30);not null" json:"operation"`
	BookingID      string           `gorm:"type:varchar(64);index" json:"booking_id"`
	PaymentID      string           `gorm:"type:varchar(100);index" json:"payment_id"`
	Succeeded      bool             `json:"succeeded"`
	Error          *string          `gorm:"type:text" json:"error,omitempty"`
	Metadata       datatypes.JSON   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time        `json:"created_at"`
}
