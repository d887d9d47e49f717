package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements crm.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByExternalID finds an invoice by (locationID, externalID)
func (r *GormInvoiceRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Invoice, error) {
	var model models.InvoiceModel
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

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *crm.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(inv)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts invoices within a location
func (r *GormInvoiceRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

var _ crm.InvoiceRepository = (*GormInvoiceRepository)(nil)
