package storage

import (
	"errors"

	"github.com/imetrics/go-connect-server/grants"
	apperrors "github.com/imetrics/go-connect-server/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ grants.Repo = (*GormGrantRepository)(nil)

// GormGrantRepository implements grants.Repo using GORM
type GormGrantRepository struct {
	db *gorm.DB
}

// NewGormGrantRepository creates a new GormGrantRepository
func NewGormGrantRepository(db *gorm.DB) *GormGrantRepository {
	return &GormGrantRepository{db: db}
}

// Upsert stores a grant, overwriting any prior grant for the same user
func (r *GormGrantRepository) Upsert(grant *grants.SecondaryGrant) error {
	model := newGrantModel(grant)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// Get retrieves the grant for a user
func (r *GormGrantRepository) Get(userID string) (*grants.SecondaryGrant, error) {
	var model GrantModel
	if err := r.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGrantNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Delete removes the grant for a user. Not an error when none exists.
func (r *GormGrantRepository) Delete(userID string) error {
	return r.db.Delete(&GrantModel{}, "user_id = ?", userID).Error
}
