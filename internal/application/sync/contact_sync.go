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

// ContactSyncer reconciles one page of external contacts into the local
// store. Identity resolution is ordered: external id, then email, then
// phone, scoped to the tenant partition. A contact first matched by a
// fallback key is merged onto the existing record, never duplicated.
type ContactSyncer struct {
	client   crm.Client
	tokens   TokenProvider
	tenants  tenant.Repository
	contacts crm.ContactRepository
	fields   crm.CustomFieldRepository
	logger   *zap.Logger
}

// NewContactSyncer creates a new ContactSyncer
func NewContactSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, contacts crm.ContactRepository, fields crm.CustomFieldRepository, logger *zap.Logger) *ContactSyncer {
	return &ContactSyncer{
		client:   client,
		tokens:   tokens,
		tenants:  tenants,
		contacts: contacts,
		fields:   fields,
		logger:   logger,
	}
}

// Name returns the stage name
func (s *ContactSyncer) Name() string { return "contacts" }

// Sync fetches one page of contacts and upserts them idempotently
func (s *ContactSyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	page, err := s.client.SearchContacts(ctx, cred.AccessToken, t.LocationID, pageRequest(opts))
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	fieldKeys, err := loadFieldKeys(ctx, s.fields, t.LocationID, "contact")
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range page.Items {
		external := page.Items[i]
		res.Processed++

		if err := s.upsert(ctx, t, &external, fieldKeys); err != nil {
			s.logger.Warn("failed to upsert contact",
				zap.String("locationId", t.LocationID),
				zap.String("externalId", external.ExternalID),
				zap.Error(err))
			res.Skipped++
			res.Errors = append(res.Errors, recordError(external.ExternalID, err))
			continue
		}

		if created := external.CreatedAt.Equal(external.UpdatedAt); created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	count, err := s.contacts.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "contacts", int(count)); err != nil {
		return nil, err
	}

	return finishPage(res, opts, page.Total, start), nil
}

// upsert merges the external contact onto an existing local record or
// inserts a new one. The external value's BaseEntity reflects the outcome:
// CreatedAt == UpdatedAt means a fresh insert.
func (s *ContactSyncer) upsert(ctx context.Context, t *tenant.Tenant, external *crm.Contact, fieldKeys map[string]string) error {
	external.LocationID = t.LocationID
	external.CustomFields = translateFieldKeys(external.CustomFields, fieldKeys)

	existing, err := s.findExisting(ctx, t.LocationID, external)
	switch {
	case err == nil:
		// Merge onto the matched record, preserving its identity and
		// original creation timestamp.
		external.BaseEntity = existing.BaseEntity
		external.UpdateTimestamp()
		if external.Source == "" {
			external.Source = existing.Source
		}
	case errors.Is(err, shared.ErrNotFound):
		external.BaseEntity = shared.NewBaseEntity()
		if external.Source == "" {
			external.Source = crm.SyncSource
		}
	default:
		return err
	}

	external.LastSyncedAt = time.Now()
	return s.contacts.Save(ctx, external)
}

// findExisting tries the ordered identity matchers for a contact
func (s *ContactSyncer) findExisting(ctx context.Context, locationID string, external *crm.Contact) (*crm.Contact, error) {
	if external.ExternalID != "" {
		c, err := s.contacts.FindByExternalID(ctx, locationID, external.ExternalID)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return c, err
		}
	}
	if external.Email != "" {
		c, err := s.contacts.FindByEmail(ctx, locationID, external.Email)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return c, err
		}
	}
	if external.Phone != "" {
		c, err := s.contacts.FindByPhone(ctx, locationID, external.Phone)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return c, err
		}
	}
	return nil, shared.ErrNotFound
}

// loadFieldKeys builds the external field id to stable key translation
// table for one model. Fields without a key keep their external id.
func loadFieldKeys(ctx context.Context, fields crm.CustomFieldRepository, locationID, model string) (map[string]string, error) {
	mappings, err := fields.FindAllForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.Model != model {
			continue
		}
		if m.FieldKey != "" {
			keys[m.ExternalID] = m.FieldKey
		}
	}
	return keys, nil
}

// translateFieldKeys rewrites a custom field map from external ids to
// stable field keys where a mapping exists
func translateFieldKeys(values, keys map[string]string) map[string]string {
	if len(values) == 0 {
		return values
	}
	out := make(map[string]string, len(values))
	for id, v := range values {
		if key, ok := keys[id]; ok {
			out[key] = v
		} else {
			out[id] = v
		}
	}
	return out
}

var _ EntitySyncer = (*ContactSyncer)(nil)
