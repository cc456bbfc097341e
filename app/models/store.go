package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	STORE_STATUS_PENDING   = "pending"
	STORE_STATUS_APPROVED  = "approved"
	STORE_STATUS_SUSPENDED = "suspended"
)

// Store is a merchant's tenant within the marketplace. Exactly one store
// exists per user; the unique indexes on user_id and slug are the real
// guards against double provisioning, application-level checks are only a
// fast path.
type Store struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string         `gorm:"type:varchar(36);not null;uniqueIndex:ux_stores_user" json:"user_id"`
	Name          string         `gorm:"type:varchar(200);not null" json:"name"`
	Slug          string         `gorm:"type:varchar(220);not null;uniqueIndex:ux_stores_slug" json:"slug"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Plan          string         `gorm:"type:varchar(50);not null;default:''" json:"plan"`
	PriorityScore int            `gorm:"not null;default:0;index" json:"priority_score"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsVisible reports whether the storefront may be served publicly.
func (s *Store) IsVisible() bool {
	return s.Status == STORE_STATUS_APPROVED
}
