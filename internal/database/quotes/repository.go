// Package quotes provides database operations for the quote journal.
//
// The repository is the single write path for quote records; the sync
// service, controllers and outbox tasks all go through it. Tombstones live
// here as well because they only exist to steer the reconciliation pass.
//
// # Usage
//
//	repo := quotes.NewRepository(db.DB)
//	list, total, err := repo.ListForUser(userID, 20, 0)
package quotes

import (
	"time"

	"gorm.io/gorm"

	"quotevault/internal/entities"
)

// Repository handles all quote database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new quotes repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListForUser returns the user's quotes ordered newest first, with the
// total count for pagination.
func (r *Repository) ListForUser(userID string, limit, offset int) ([]entities.Quote, int64, error) {
	var total int64
	if err := r.db.Model(&entities.Quote{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Where("user_id = ?", userID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var quotes []entities.Quote
	err := query.Find(&quotes).Error
	return quotes, total, err
}

// AllForUser returns every quote for the user, newest first. Used by the
// reconciliation pass, which needs the full local collection.
func (r *Repository) AllForUser(userID string) ([]entities.Quote, error) {
	var quotes []entities.Quote
	err := r.db.Where("user_id = ?", userID).Order("timestamp DESC").Find(&quotes).Error
	return quotes, err
}

// GetByID retrieves a quote by its ID.
func (r *Repository) GetByID(id string) (*entities.Quote, error) {
	var quote entities.Quote
	err := r.db.Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create inserts a new quote record.
func (r *Repository) Create(quote *entities.Quote) error {
	return r.db.Create(quote).Error
}

// Save persists changes to an existing quote.
func (r *Repository) Save(quote *entities.Quote) error {
	return r.db.Save(quote).Error
}

// Delete removes a quote record permanently.
func (r *Repository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&entities.Quote{}).Error
}

// Current returns the quote with the maximum timestamp, i.e. the one the
// widget shows. Returns gorm.ErrRecordNotFound on an empty journal.
func (r *Repository) Current(userID string) (*entities.Quote, error) {
	var quote entities.Quote
	query := r.db.Order("timestamp DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	err := query.First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// FindFavorite looks up a favorite record matching text and author exactly.
// Category order is irrelevant to identity, so it is not part of the match.
func (r *Repository) FindFavorite(userID, text, author string) (*entities.Quote, error) {
	var quote entities.Quote
	err := r.db.Where("user_id = ? AND text = ? AND author = ? AND is_favorite = ?",
		userID, text, author, true).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// SetTimestamp rewrites the recency key of a quote. Promotion is the only
// mutation records receive after creation.
func (r *Repository) SetTimestamp(id string, ts time.Time) error {
	return r.db.Model(&entities.Quote{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"timestamp": ts, "synced_at": nil}).Error
}

// MarkSynced records that the quote's current state is confirmed remote.
func (r *Repository) MarkSynced(id string, at time.Time) error {
	return r.db.Model(&entities.Quote{}).
		Where("id = ?", id).
		Update("synced_at", at).Error
}

// CountForUser returns the number of quotes in the user's journal.
func (r *Repository) CountForUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Quote{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CreateTombstone records a local deletion whose remote delete is pending.
func (r *Repository) CreateTombstone(quoteID, userID string) error {
	tombstone := entities.Tombstone{
		QuoteID:   quoteID,
		UserID:    userID,
		DeletedAt: time.Now(),
	}
	return r.db.Save(&tombstone).Error
}

// DeleteTombstone clears a tombstone once the remote delete is confirmed.
func (r *Repository) DeleteTombstone(quoteID string) error {
	return r.db.Where("quote_id = ?", quoteID).Delete(&entities.Tombstone{}).Error
}

// TombstonedIDs returns the set of quote IDs with live tombstones.
func (r *Repository) TombstonedIDs(userID string) (map[string]bool, error) {
	var tombstones []entities.Tombstone
	if err := r.db.Where("user_id = ?", userID).Find(&tombstones).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(tombstones))
	for _, t := range tombstones {
		ids[t.QuoteID] = true
	}
	return ids, nil
}

// HasTombstone reports whether a quote ID has a live tombstone.
func (r *Repository) HasTombstone(quoteID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Tombstone{}).Where("quote_id = ?", quoteID).Count(&count).Error
	return count > 0, err
}
