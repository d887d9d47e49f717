package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
)

// messagePreviewLimit bounds how many recent messages are pulled per
// conversation. Full history is out of scope for onboarding.
const messagePreviewLimit = 20

// ConversationSyncer reconciles one page of conversations plus a bounded
// tail of recent messages per conversation.
type ConversationSyncer struct {
	client        crm.Client
	tokens        TokenProvider
	tenants       tenant.Repository
	conversations crm.ConversationRepository
	messages      crm.MessageRepository
	resolver      crm.ContactResolver
	logger        *zap.Logger
}

// NewConversationSyncer creates a new ConversationSyncer
func NewConversationSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, conversations crm.ConversationRepository, messages crm.MessageRepository, resolver crm.ContactResolver, logger *zap.Logger) *ConversationSyncer {
	return &ConversationSyncer{
		client:        client,
		tokens:        tokens,
		tenants:       tenants,
		conversations: conversations,
		messages:      messages,
		resolver:      resolver,
		logger:        logger,
	}
}

// Name returns the stage name
func (s *ConversationSyncer) Name() string { return "conversations" }

// Sync fetches one page of conversations and upserts them idempotently
func (s *ConversationSyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	page, err := s.client.SearchConversations(ctx, cred.AccessToken, t.LocationID, pageRequest(opts))
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	res := &Result{}
	for i := range page.Items {
		external := page.Items[i]
		res.Processed++
		external.LocationID = t.LocationID

		if contactID, err := s.resolver.Resolve(ctx, t.LocationID, external.ContactExternalID, "", ""); err == nil {
			external.ContactID = &contactID
		} else if !errors.Is(err, crm.ErrRelationUnresolved) {
			return nil, err
		}

		existing, err := s.conversations.FindByExternalID(ctx, t.LocationID, external.ExternalID)
		var fresh bool
		switch {
		case err == nil:
			external.BaseEntity = existing.BaseEntity
			external.UpdateTimestamp()
		case errors.Is(err, shared.ErrNotFound):
			external.BaseEntity = shared.NewBaseEntity()
			fresh = true
		default:
			return nil, err
		}
		external.LastSyncedAt = time.Now()

		if err := s.conversations.Save(ctx, &external); err != nil {
			s.logger.Warn("failed to upsert conversation",
				zap.String("locationId", t.LocationID),
				zap.String("externalId", external.ExternalID),
				zap.Error(err))
			res.Skipped++
			res.Errors = append(res.Errors, recordError(external.ExternalID, err))
			continue
		}
		if fresh {
			res.Created++
		} else {
			res.Updated++
		}

		s.syncMessages(ctx, cred.AccessToken, t.LocationID, &external)
	}

	count, err := s.conversations.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "conversations", int(count)); err != nil {
		return nil, err
	}

	return finishPage(res, opts, page.Total, start), nil
}

// syncMessages pulls a bounded tail of recent messages. Message failures
// never affect the conversation result; the preview is best-effort.
func (s *ConversationSyncer) syncMessages(ctx context.Context, token, locationID string, conversation *crm.Conversation) {
	externalMessages, err := s.client.ListMessages(ctx, token, conversation.ExternalID, messagePreviewLimit)
	if err != nil {
		s.logger.Debug("failed to list conversation messages",
			zap.String("conversationId", conversation.ExternalID),
			zap.Error(err))
		return
	}

	for i := range externalMessages {
		msg := externalMessages[i]
		msg.LocationID = locationID
		msg.ConversationID = conversation.ID

		existing, err := s.messages.FindByExternalID(ctx, locationID, msg.ExternalID)
		switch {
		case err == nil:
			msg.BaseEntity = existing.BaseEntity
			msg.UpdateTimestamp()
		case errors.Is(err, shared.ErrNotFound):
			msg.BaseEntity = shared.NewBaseEntity()
		default:
			s.logger.Debug("failed to look up message",
				zap.String("externalId", msg.ExternalID),
				zap.Error(err))
			continue
		}

		if err := s.messages.Save(ctx, &msg); err != nil {
			s.logger.Debug("failed to save message",
				zap.String("externalId", msg.ExternalID),
				zap.Error(err))
		}
	}
}

var _ EntitySyncer = (*ConversationSyncer)(nil)
