package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormCustomFieldRepository implements crm.CustomFieldRepository using GORM
type GormCustomFieldRepository struct {
	db *gorm.DB
}

// NewGormCustomFieldRepository creates a new GormCustomFieldRepository
func NewGormCustomFieldRepository(db *gorm.DB) *GormCustomFieldRepository {
	return &GormCustomFieldRepository{db: db}
}

// FindByExternalID finds a mapping by (locationID, externalID)
func (r *GormCustomFieldRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.CustomFieldMapping, error) {
	var model models.CustomFieldModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND external_id = ?", locationID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForLocation returns all mappings for a location
func (r *GormCustomFieldRepository) FindAllForLocation(ctx context.Context, locationID string) ([]crm.CustomFieldMapping, error) {
	var fieldModels []models.CustomFieldModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("field_key ASC").
		Find(&fieldModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]crm.CustomFieldMapping, len(fieldModels))
	for i, model := range fieldModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Save creates or updates a mapping
func (r *GormCustomFieldRepository) Save(ctx context.Context, m *crm.CustomFieldMapping) error {
	var model models.CustomFieldModel
	model.FromDomain(m)
	return r.db.WithContext(ctx).Save(&model).Error
}

var _ crm.CustomFieldRepository = (*GormCustomFieldRepository)(nil)
