package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormTenantRepository implements tenant.Repository using GORM.
// Progress, credential and count writers update a single JSONB sub-path
// with jsonb_set so concurrent stage writes never overwrite each other.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its internal id
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLocationID finds a tenant by its external CRM location id
func (r *GormTenantRepository) FindByLocationID(ctx context.Context, locationID string) (*tenant.Tenant, error) {
	if locationID == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION_ID", "Location ID cannot be empty")
	}
	var model models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the whole tenant record
func (r *GormTenantRepository) Save(ctx context.Context, t *tenant.Tenant) error {
	var model models.TenantModel
	model.FromDomain(t)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpdateCredential replaces only the credential field
func (r *GormTenantRepository) UpdateCredential(ctx context.Context, id uuid.UUID, cred *tenant.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return r.updateFields(ctx, id, map[string]any{
		"credential": string(payload),
	})
}

// UpdateStageProgress replaces only syncProgress[stage]
func (r *GormTenantRepository) UpdateStageProgress(ctx context.Context, id uuid.UUID, stage string, progress tenant.StageProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal stage progress: %w", err)
	}
	return r.updateFields(ctx, id, map[string]any{
		"sync_progress": gorm.Expr(
			"jsonb_set(COALESCE(sync_progress, '{}'::jsonb), ARRAY[?], ?::jsonb, true)",
			stage, string(payload),
		),
	})
}

// UpdateProfile replaces only the profile fields pulled from the CRM
func (r *GormTenantRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email, phone, timezone string) error {
	return r.updateFields(ctx, id, map[string]any{
		"name":     name,
		"email":    email,
		"phone":    phone,
		"timezone": timezone,
	})
}

// UpdateSetupData replaces only the named setup artifact
func (r *GormTenantRepository) UpdateSetupData(ctx context.Context, id uuid.UUID, field string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setup data %q: %w", field, err)
	}
	return r.updateFields(ctx, id, map[string]any{
		"setup_data": gorm.Expr(
			"jsonb_set(COALESCE(setup_data, '{}'::jsonb), ARRAY[?], ?::jsonb, true)",
			field, string(payload),
		),
	})
}

// UpdateEntityCount replaces only entityCounts[entity]
func (r *GormTenantRepository) UpdateEntityCount(ctx context.Context, id uuid.UUID, entity string, count int) error {
	return r.updateFields(ctx, id, map[string]any{
		"entity_counts": gorm.Expr(
			"jsonb_set(COALESCE(entity_counts, '{}'::jsonb), ARRAY[?], ?::jsonb, true)",
			entity, fmt.Sprintf("%d", count),
		),
	})
}

// SetSetupCompleted marks onboarding as finished
func (r *GormTenantRepository) SetSetupCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.updateFields(ctx, id, map[string]any{
		"setup_completed":    true,
		"setup_completed_at": now,
	})
}

// updateFields applies a narrow column update and reports missing rows
func (r *GormTenantRepository) updateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.TenantModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormCompanyRepository implements tenant.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByCompanyID finds a company by its external CRM company id
func (r *GormCompanyRepository) FindByCompanyID(ctx context.Context, companyID string) (*tenant.Company, error) {
	if companyID == "" {
		return nil, shared.NewDomainError("INVALID_COMPANY_ID", "Company ID cannot be empty")
	}
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a company record
func (r *GormCompanyRepository) Save(ctx context.Context, c *tenant.Company) error {
	var model models.CompanyModel
	model.FromDomain(c)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpdateCredential replaces only the credential field
func (r *GormCompanyRepository) UpdateCredential(ctx context.Context, id uuid.UUID, cred *tenant.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credential": string(payload),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ tenant.Repository        = (*GormTenantRepository)(nil)
	_ tenant.CompanyRepository = (*GormCompanyRepository)(nil)
)
