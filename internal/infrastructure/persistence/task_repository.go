package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormTaskRepository implements crm.TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByExternalID finds a task by (locationID, externalID)
func (r *GormTaskRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.TaskItem, error) {
	var model models.TaskModel
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

// Save creates or updates a task
func (r *GormTaskRepository) Save(ctx context.Context, t *crm.TaskItem) error {
	var model models.TaskModel
	model.FromDomain(t)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts tasks within a location
func (r *GormTaskRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

var _ crm.TaskRepository = (*GormTaskRepository)(nil)
