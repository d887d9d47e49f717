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

// Setup syncers pull small, unbounded artifact lists (pipelines, calendars,
// users, custom values, tags) and store them as documents on the tenant
// record. They do not paginate; the external CRM returns these whole.

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

// ProfileSyncer pulls the location business profile onto the tenant record
type ProfileSyncer struct {
	client  crm.Client
	tokens  TokenProvider
	tenants tenant.Repository
}

// NewProfileSyncer creates a new ProfileSyncer
func NewProfileSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *ProfileSyncer {
	return &ProfileSyncer{client: client, tokens: tokens, tenants: tenants}
}

// Name returns the stage name
func (s *ProfileSyncer) Name() string { return "profile" }

// Sync fetches the location profile and writes it onto the tenant record
func (s *ProfileSyncer) Sync(ctx context.Context, t *tenant.Tenant, _ Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.GetLocation(ctx, cred.AccessToken, t.LocationID)
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	if err := s.tenants.UpdateProfile(ctx, t.ID, profile.Name, profile.Email, profile.Phone, profile.Timezone); err != nil {
		return nil, err
	}

	return &Result{
		Updated:         1,
		Processed:       1,
		TotalInExternal: 1,
		Duration:        time.Since(start),
	}, nil
}

// ---------------------------------------------------------------------------
// Setup Artifacts
// ---------------------------------------------------------------------------

// SetupArtifactSyncer stores one named artifact list on the tenant record.
// The fetch function adapts the per-artifact client call into a generic
// (items, count) shape.
type SetupArtifactSyncer struct {
	name    string
	tokens  TokenProvider
	tenants tenant.Repository
	fetch   func(ctx context.Context, token, locationID string) (any, int, error)
}

// Name returns the stage name
func (s *SetupArtifactSyncer) Name() string { return s.name }

// Sync fetches the artifact list and stores it under setupData[name]
func (s *SetupArtifactSyncer) Sync(ctx context.Context, t *tenant.Tenant, _ Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	items, count, err := s.fetch(ctx, cred.AccessToken, t.LocationID)
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	if err := s.tenants.UpdateSetupData(ctx, t.ID, s.name, items); err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, s.name, count); err != nil {
		return nil, err
	}

	return &Result{
		Updated:         count,
		Processed:       count,
		TotalInExternal: count,
		Duration:        time.Since(start),
	}, nil
}

// NewPipelinesSyncer creates the pipelines stage syncer
func NewPipelinesSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *SetupArtifactSyncer {
	return &SetupArtifactSyncer{
		name:    "pipelines",
		tokens:  tokens,
		tenants: tenants,
		fetch: func(ctx context.Context, token, locationID string) (any, int, error) {
			items, err := client.ListPipelines(ctx, token, locationID)
			return items, len(items), err
		},
	}
}

// NewCalendarsSyncer creates the calendars stage syncer
func NewCalendarsSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *SetupArtifactSyncer {
	return &SetupArtifactSyncer{
		name:    "calendars",
		tokens:  tokens,
		tenants: tenants,
		fetch: func(ctx context.Context, token, locationID string) (any, int, error) {
			items, err := client.ListCalendars(ctx, token, locationID)
			return items, len(items), err
		},
	}
}

// NewUsersSyncer creates the users stage syncer
func NewUsersSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *SetupArtifactSyncer {
	return &SetupArtifactSyncer{
		name:    "users",
		tokens:  tokens,
		tenants: tenants,
		fetch: func(ctx context.Context, token, locationID string) (any, int, error) {
			items, err := client.ListUsers(ctx, token, locationID)
			return items, len(items), err
		},
	}
}

// NewCustomValuesSyncer creates the customValues stage syncer
func NewCustomValuesSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *SetupArtifactSyncer {
	return &SetupArtifactSyncer{
		name:    "customValues",
		tokens:  tokens,
		tenants: tenants,
		fetch: func(ctx context.Context, token, locationID string) (any, int, error) {
			items, err := client.ListCustomValues(ctx, token, locationID)
			return items, len(items), err
		},
	}
}

// NewTagsSyncer creates the tags stage syncer
func NewTagsSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository) *SetupArtifactSyncer {
	return &SetupArtifactSyncer{
		name:    "tags",
		tokens:  tokens,
		tenants: tenants,
		fetch: func(ctx context.Context, token, locationID string) (any, int, error) {
			items, err := client.ListTags(ctx, token, locationID)
			return items, len(items), err
		},
	}
}

// ---------------------------------------------------------------------------
// Custom Fields
// ---------------------------------------------------------------------------

// customFieldModels are the entity models custom fields attach to
var customFieldModels = []string{"contact", "opportunity"}

// CustomFieldsSyncer persists custom field definitions as first-class
// records so later stages can translate field ids into stable keys.
type CustomFieldsSyncer struct {
	client  crm.Client
	tokens  TokenProvider
	tenants tenant.Repository
	fields  crm.CustomFieldRepository
	logger  *zap.Logger
}

// NewCustomFieldsSyncer creates a new CustomFieldsSyncer
func NewCustomFieldsSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, fields crm.CustomFieldRepository, logger *zap.Logger) *CustomFieldsSyncer {
	return &CustomFieldsSyncer{client: client, tokens: tokens, tenants: tenants, fields: fields, logger: logger}
}

// Name returns the stage name
func (s *CustomFieldsSyncer) Name() string { return "customFields" }

// Sync fetches custom field definitions for every supported model and
// upserts them by (locationID, externalID)
func (s *CustomFieldsSyncer) Sync(ctx context.Context, t *tenant.Tenant, _ Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, model := range customFieldModels {
		defs, err := s.client.ListCustomFields(ctx, cred.AccessToken, t.LocationID, model)
		if err != nil {
			if errors.Is(err, crm.ErrNotSupported) {
				continue
			}
			return nil, err
		}

		for _, def := range defs {
			res.Processed++
			def.LocationID = t.LocationID
			if def.Model == "" {
				def.Model = model
			}

			existing, err := s.fields.FindByExternalID(ctx, t.LocationID, def.ExternalID)
			switch {
			case err == nil:
				def.BaseEntity = existing.BaseEntity
				def.UpdateTimestamp()
				res.Updated++
			case errors.Is(err, shared.ErrNotFound):
				def.BaseEntity = shared.NewBaseEntity()
				res.Created++
			default:
				return nil, err
			}
			def.LastSyncedAt = time.Now()

			if err := s.fields.Save(ctx, &def); err != nil {
				s.logger.Warn("failed to save custom field mapping",
					zap.String("locationId", t.LocationID),
					zap.String("externalId", def.ExternalID),
					zap.Error(err))
				res.Skipped++
				res.Errors = append(res.Errors, recordError(def.ExternalID, err))
			}
		}
	}

	res.TotalInExternal = res.Processed
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "customFields", res.Processed); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	return res, nil
}

var (
	_ EntitySyncer = (*ProfileSyncer)(nil)
	_ EntitySyncer = (*SetupArtifactSyncer)(nil)
	_ EntitySyncer = (*CustomFieldsSyncer)(nil)
)
