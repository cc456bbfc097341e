package repository

import (
	"github.com/obramarket/ObraMarket/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// StoreRepository defines the interface for store (tenant) database operations.
// CreateOrGet is the race-safe creation path: on a unique-key conflict the
// already-existing row for the same user is returned instead of an error.
type StoreRepository interface {
	CreateOrGet(store *models.Store) (*models.Store, bool, error)
	GetByID(id string) (*models.Store, error)
	GetByUserID(userID string) (*models.Store, error)
	GetBySlug(slug string) (*models.Store, error)
	Update(store *models.Store) error
	UpdateStatus(id, status string) error
	ListApproved(offset, limit int) ([]models.Store, error)
	Count() (int64, error)
}

// NotificationRepository defines the interface for notification persistence.
// The provisioning pipeline only inserts; reads serve the UI feed.
type NotificationRepository interface {
	Create(notification *models.Notification) error
	GetByUserID(userID string, offset, limit int) ([]models.Notification, error)
	CountUnread(userID string) (int64, error)
	MarkRead(id uint) error
}

// WebhookEventRepository is the idempotency ledger over processed provider
// events.
type WebhookEventRepository interface {
	HasProcessed(provider, providerEventID string) (bool, error)
	Record(event *models.WebhookEvent) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Store        StoreRepository
	Notification NotificationRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Store:        NewStoreRepository(db),
		Notification: NewNotificationRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
