package storage

import (
	"errors"

	"github.com/imetrics/go-connect-server/reportcache"
	"gorm.io/gorm"
)

var _ reportcache.Repo = (*GormReportCacheRepository)(nil)

// GormReportCacheRepository implements reportcache.Repo using GORM
type GormReportCacheRepository struct {
	db *gorm.DB
}

// NewGormReportCacheRepository creates a new GormReportCacheRepository
func NewGormReportCacheRepository(db *gorm.DB) *GormReportCacheRepository {
	return &GormReportCacheRepository{db: db}
}

// Get retrieves the cached report for a key, nil when none exists
func (r *GormReportCacheRepository) Get(key reportcache.Key) (*reportcache.CachedReport, error) {
	var model CachedReportModel
	err := r.db.
		Where("user_id = ? AND resource_id = ? AND start_date = ? AND end_date = ?",
			key.UserID, key.ResourceID, key.StartDate, key.EndDate).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Insert stores a fresh entry. Any existing row for the same key is deleted
// first so the unique key never conflicts.
func (r *GormReportCacheRepository) Insert(entry *reportcache.CachedReport) error {
	model := newCachedReportModel(entry)
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND resource_id = ? AND start_date = ? AND end_date = ?",
				model.UserID, model.ResourceID, model.StartDate, model.EndDate).
			Delete(&CachedReportModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

// DeleteByUser removes every cached report for a user
func (r *GormReportCacheRepository) DeleteByUser(userID string) error {
	return r.db.Delete(&CachedReportModel{}, "user_id = ?", userID).Error
}
