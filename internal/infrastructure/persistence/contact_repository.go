package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormContactRepository implements crm.ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// FindByExternalID finds a contact by (locationID, externalID)
func (r *GormContactRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Contact, error) {
	var model models.ContactModel
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

// FindByEmail finds a contact by email within a location
func (r *GormContactRepository) FindByEmail(ctx context.Context, locationID, email string) (*crm.Contact, error) {
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND email = ?", locationID, strings.ToLower(email)).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPhone finds a contact by phone within a location
func (r *GormContactRepository) FindByPhone(ctx context.Context, locationID, phone string) (*crm.Contact, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND phone = ?", locationID, phone).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a contact
func (r *GormContactRepository) Save(ctx context.Context, c *crm.Contact) error {
	var model models.ContactModel
	model.FromDomain(c)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts contacts within a location
func (r *GormContactRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContactModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

// ContactResolver resolves a local contact id for an external reference
// using ordered matchers: external id, then email, then phone.
type ContactResolver struct {
	contacts crm.ContactRepository
}

// NewContactResolver creates a new ContactResolver
func NewContactResolver(contacts crm.ContactRepository) *ContactResolver {
	return &ContactResolver{contacts: contacts}
}

// Resolve returns the local contact id for an external contact. Returns
// crm.ErrRelationUnresolved when no matcher finds a contact.
func (r *ContactResolver) Resolve(ctx context.Context, locationID, externalID, email, phone string) (uuid.UUID, error) {
	if externalID != "" {
		c, err := r.contacts.FindByExternalID(ctx, locationID, externalID)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	if email != "" {
		c, err := r.contacts.FindByEmail(ctx, locationID, email)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	if phone != "" {
		c, err := r.contacts.FindByPhone(ctx, locationID, phone)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	return uuid.Nil, crm.ErrRelationUnresolved
}

var (
	_ crm.ContactRepository = (*GormContactRepository)(nil)
	_ crm.ContactResolver   = (*ContactResolver)(nil)
)
