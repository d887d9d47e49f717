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

// TaskSyncer reconciles one page of external tasks. The contact relation
// is best-effort: an unresolved contact keeps the external reference and
// is linked on a later run.
type TaskSyncer struct {
	client   crm.Client
	tokens   TokenProvider
	tenants  tenant.Repository
	tasks    crm.TaskRepository
	resolver crm.ContactResolver
	logger   *zap.Logger
}

// NewTaskSyncer creates a new TaskSyncer
func NewTaskSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, tasks crm.TaskRepository, resolver crm.ContactResolver, logger *zap.Logger) *TaskSyncer {
	return &TaskSyncer{
		client:   client,
		tokens:   tokens,
		tenants:  tenants,
		tasks:    tasks,
		resolver: resolver,
		logger:   logger,
	}
}

// Name returns the stage name
func (s *TaskSyncer) Name() string { return "tasks" }

// Sync fetches one page of tasks and upserts them idempotently
func (s *TaskSyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	page, err := s.client.ListTasks(ctx, cred.AccessToken, t.LocationID, pageRequest(opts))
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

		existing, err := s.tasks.FindByExternalID(ctx, t.LocationID, external.ExternalID)
		switch {
		case err == nil:
			external.BaseEntity = existing.BaseEntity
			external.UpdateTimestamp()
			res.Updated++
		case errors.Is(err, shared.ErrNotFound):
			external.BaseEntity = shared.NewBaseEntity()
			res.Created++
		default:
			return nil, err
		}
		external.LastSyncedAt = time.Now()

		if err := s.tasks.Save(ctx, &external); err != nil {
			s.logger.Warn("failed to upsert task",
				zap.String("locationId", t.LocationID),
				zap.String("externalId", external.ExternalID),
				zap.Error(err))
			res.Skipped++
			res.Errors = append(res.Errors, recordError(external.ExternalID, err))
		}
	}

	count, err := s.tasks.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "tasks", int(count)); err != nil {
		return nil, err
	}

	return finishPage(res, opts, page.Total, start), nil
}

var _ EntitySyncer = (*TaskSyncer)(nil)
