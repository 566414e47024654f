package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsapp NotificationChannel = "whatsapp"
	NotificationChannelNone     NotificationChannel = "none"
)

const (
	WhatsappTargetTypePersonal = "personal"
	WhatsappTargetTypeGroup    = "group"
)

// Owner is the operator of a bookable resource (a hall or a service
// provider) together with how they want to be notified.
type Owner struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ResourceID   string      `gorm:"type:varchar(100);uniqueIndex" json:"resource_id"`
	ResourceKind BookingKind `gorm:"type:varchar(20)" json:"resource_kind"`
	Name         string      `gorm:"type:varchar(255)" json:"name"`
	Email        string      `gorm:"type:varchar(255)" json:"email"`
	Phone        string      `gorm:"type:varchar(50)" json:"phone"`

	Channel NotificationChannel `gorm:"type:varchar(20);default:'email'" json:"channel"`

	// WhatsApp specific options
	WhatsappTargetType string `gorm:"type:varchar(20);default:'personal'" json:"whatsapp_target_type"`
	WhatsappGroupID    string `gorm:"type:varchar(100)" json:"whatsapp_group_id"`
}
