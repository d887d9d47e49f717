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

// OpportunitySyncer reconciles one page of external opportunities into
// local projects. It runs after the customFields stage so opportunity
// custom field ids can be translated into stable field keys.
type OpportunitySyncer struct {
	client   crm.Client
	tokens   TokenProvider
	tenants  tenant.Repository
	projects crm.ProjectRepository
	fields   crm.CustomFieldRepository
	resolver crm.ContactResolver
	logger   *zap.Logger
}

// NewOpportunitySyncer creates a new OpportunitySyncer
func NewOpportunitySyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, projects crm.ProjectRepository, fields crm.CustomFieldRepository, resolver crm.ContactResolver, logger *zap.Logger) *OpportunitySyncer {
	return &OpportunitySyncer{
		client:   client,
		tokens:   tokens,
		tenants:  tenants,
		projects: projects,
		fields:   fields,
		resolver: resolver,
		logger:   logger,
	}
}

// Name returns the stage name
func (s *OpportunitySyncer) Name() string { return "opportunities" }

// Sync fetches one page of opportunities and upserts them idempotently
func (s *OpportunitySyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	page, err := s.client.SearchProjects(ctx, cred.AccessToken, t.LocationID, pageRequest(opts))
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	fieldKeys, err := loadFieldKeys(ctx, s.fields, t.LocationID, "opportunity")
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range page.Items {
		external := page.Items[i]
		res.Processed++
		external.LocationID = t.LocationID
		external.CustomFieldValues = translateFieldKeys(external.CustomFieldValues, fieldKeys)

		if contactID, err := s.resolver.Resolve(ctx, t.LocationID, external.ContactExternalID, "", ""); err == nil {
			external.ContactID = &contactID
		} else if !errors.Is(err, crm.ErrRelationUnresolved) {
			return nil, err
		}

		existing, err := s.projects.FindByExternalID(ctx, t.LocationID, external.ExternalID)
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

		if err := s.projects.Save(ctx, &external); err != nil {
			s.logger.Warn("failed to upsert opportunity",
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
	}

	count, err := s.projects.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "opportunities", int(count)); err != nil {
		return nil, err
	}

	return finishPage(res, opts, page.Total, start), nil
}

var _ EntitySyncer = (*OpportunitySyncer)(nil)
