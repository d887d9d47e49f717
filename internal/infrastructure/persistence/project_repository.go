package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormProjectRepository implements crm.ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByExternalID finds a project by (locationID, externalID)
func (r *GormProjectRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Project, error) {
	var model models.ProjectModel
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

// Save creates or updates a project
func (r *GormProjectRepository) Save(ctx context.Context, p *crm.Project) error {
	var model models.ProjectModel
	model.FromDomain(p)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts projects within a location
func (r *GormProjectRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

var _ crm.ProjectRepository = (*GormProjectRepository)(nil)
