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

// InvoiceSyncer reconciles one page of external invoices
type InvoiceSyncer struct {
	client   crm.Client
	tokens   TokenProvider
	tenants  tenant.Repository
	invoices crm.InvoiceRepository
	resolver crm.ContactResolver
	logger   *zap.Logger
}

// NewInvoiceSyncer creates a new InvoiceSyncer
func NewInvoiceSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, invoices crm.InvoiceRepository, resolver crm.ContactResolver, logger *zap.Logger) *InvoiceSyncer {
	return &InvoiceSyncer{
		client:   client,
		tokens:   tokens,
		tenants:  tenants,
		invoices: invoices,
		resolver: resolver,
		logger:   logger,
	}
}

// Name returns the stage name
func (s *InvoiceSyncer) Name() string { return "invoices" }

// Sync fetches one page of invoices and upserts them idempotently
func (s *InvoiceSyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	page, err := s.client.ListInvoices(ctx, cred.AccessToken, t.LocationID, pageRequest(opts))
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

		existing, err := s.invoices.FindByExternalID(ctx, t.LocationID, external.ExternalID)
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

		if err := s.invoices.Save(ctx, &external); err != nil {
			s.logger.Warn("failed to upsert invoice",
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

	count, err := s.invoices.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "invoices", int(count)); err != nil {
		return nil, err
	}

	return finishPage(res, opts, page.Total, start), nil
}

var _ EntitySyncer = (*InvoiceSyncer)(nil)
