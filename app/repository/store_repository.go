package repository

import (
	"errors"

	"github.com/obramarket/ObraMarket/app/models"
	"gorm.io/gorm"
)

// storeRepository implements the StoreRepository interface
type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository creates a new store repository instance
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

// CreateOrGet inserts the store, or returns the existing row for the same
// user when the insert loses a race. The unique indexes on user_id and slug
// are the source of truth; losing to a concurrent writer is success, not an
// error. The bool reports whether this call created the row.
func (r *storeRepository) CreateOrGet(store *models.Store) (*models.Store, bool, error) {
	err := r.db.Create(store).Error
	if err == nil {
		return store, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}
	existing, readErr := r.GetByUserID(store.UserID)
	if readErr != nil {
		return nil, false, readErr
	}
	return existing, false, nil
}

// GetByID retrieves a store by its ID
func (r *storeRepository) GetByID(id string) (*models.Store, error) {
	var store models.Store
	err := r.db.Where("id = ?", id).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// GetByUserID retrieves the store owned by the given user
func (r *storeRepository) GetByUserID(userID string) (*models.Store, error) {
	var store models.Store
	err := r.db.Where("user_id = ?", userID).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// GetBySlug retrieves a store by its public slug
func (r *storeRepository) GetBySlug(slug string) (*models.Store, error) {
	var store models.Store
	err := r.db.Where("slug = ?", slug).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// Update updates an existing store
func (r *storeRepository) Update(store *models.Store) error {
	return r.db.Save(store).Error
}

// UpdateStatus updates only the store status
func (r *storeRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&models.Store{}).Where("id = ?", id).Update("status", status).Error
}

// ListApproved returns publicly visible stores ordered by marketplace ranking
func (r *storeRepository) ListApproved(offset, limit int) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.Where("status = ?", models.STORE_STATUS_APPROVED).
		Order("priority_score DESC, created_at ASC").
		Offset(offset).Limit(limit).
		Find(&stores).Error
	return stores, err
}

// Count returns the total number of stores
func (r *storeRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Store{}).Count(&count).Error
	return count, err
}
