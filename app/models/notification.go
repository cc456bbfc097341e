package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NOTIFICATION_PAYMENT_FAILED         = "payment_failed"
	NOTIFICATION_SUBSCRIPTION_CANCELLED = "subscription_cancelled"
	NOTIFICATION_SYSTEM                 = "system"
)

// Notification is a user-facing alert. The provisioning pipeline only ever
// inserts; reading and dismissing happen through the UI endpoints.
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(36);index" json:"user_id"`
	Type      string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=payment_failed subscription_cancelled system"`
	Title     string         `gorm:"type:varchar(200)" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Link      string         `gorm:"type:varchar(255)" json:"link"`
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
