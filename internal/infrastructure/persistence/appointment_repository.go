package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormAppointmentRepository implements crm.AppointmentRepository using GORM
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a new GormAppointmentRepository
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

// FindByExternalID finds an appointment by (locationID, externalID)
func (r *GormAppointmentRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Appointment, error) {
	var model models.AppointmentModel
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

// Save creates or updates an appointment
func (r *GormAppointmentRepository) Save(ctx context.Context, a *crm.Appointment) error {
	var model models.AppointmentModel
	model.FromDomain(a)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts appointments within a location
func (r *GormAppointmentRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AppointmentModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

var _ crm.AppointmentRepository = (*GormAppointmentRepository)(nil)
