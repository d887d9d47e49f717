package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/persistence/models"
)

// GormConversationRepository implements crm.ConversationRepository using GORM
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// FindByExternalID finds a conversation by (locationID, externalID)
func (r *GormConversationRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Conversation, error) {
	var model models.ConversationModel
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

// Save creates or updates a conversation
func (r *GormConversationRepository) Save(ctx context.Context, c *crm.Conversation) error {
	var model models.ConversationModel
	model.FromDomain(c)
	return r.db.WithContext(ctx).Save(&model).Error
}

// CountForLocation counts conversations within a location
func (r *GormConversationRepository) CountForLocation(ctx context.Context, locationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationModel{}).
		Where("location_id = ?", locationID).
		Count(&count).Error
	return count, err
}

// GormMessageRepository implements crm.MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// FindByExternalID finds a message by (locationID, externalID)
func (r *GormMessageRepository) FindByExternalID(ctx context.Context, locationID, externalID string) (*crm.Message, error) {
	var model models.MessageModel
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

// Save creates or updates a message
func (r *GormMessageRepository) Save(ctx context.Context, m *crm.Message) error {
	var model models.MessageModel
	model.FromDomain(m)
	return r.db.WithContext(ctx).Save(&model).Error
}

var (
	_ crm.ConversationRepository = (*GormConversationRepository)(nil)
	_ crm.MessageRepository      = (*GormMessageRepository)(nil)
)
