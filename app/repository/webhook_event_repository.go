package repository

import (
	"github.com/obramarket/ObraMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// HasProcessed reports whether the ledger already contains the event.
func (r *webhookEventRepository) HasProcessed(provider, providerEventID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record inserts the ledger row. A concurrent duplicate is absorbed by the
// unique index (OnConflict DoNothing) and reported via the created flag, so
// the caller can distinguish "I recorded it" from "someone else already did".
func (r *webhookEventRepository) Record(event *models.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
