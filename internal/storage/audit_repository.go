package storage

import (
	"github.com/imetrics/go-connect-server/audit"
	"gorm.io/gorm"
)

var _ audit.Repo = (*GormAuditRepository)(nil)

// GormAuditRepository implements audit.Repo using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes one audit entry
func (r *GormAuditRepository) Append(entry *audit.Entry) error {
	return r.db.Create(newAuditEntryModel(entry)).Error
}

// ListByUser returns the most recent entries for a user, newest first
func (r *GormAuditRepository) ListByUser(userID string, limit int) ([]*audit.Entry, error) {
	query := r.db.Where("user_id = ?", userID).Order("at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []AuditEntryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*audit.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, models[i].ToDomain())
	}
	return entries, nil
}
