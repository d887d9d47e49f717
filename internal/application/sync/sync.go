package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/tenant"
)

// TokenProvider resolves a usable access token for a tenant. The concrete
// provider lives in the onboarding package; syncers only need resolution.
type TokenProvider interface {
	// Resolve returns a credential for the tenant or crm.ErrAuthUnavailable
	Resolve(ctx context.Context, t *tenant.Tenant) (*tenant.Credential, error)
}

// Options controls one invocation of an entity syncer
type Options struct {
	// Limit is the page size
	Limit int
	// Offset is the number of records to skip
	Offset int
	// FullSync requests exhaustive pagination via the batch driver
	FullSync bool
	// StartDate bounds time-ranged entities, optional
	StartDate time.Time
	// EndDate bounds time-ranged entities, optional
	EndDate time.Time
}

// Result is the outcome of one sync invocation. The batch driver returns
// an aggregate shaped identically to a single page.
type Result struct {
	// Created is the number of new local records inserted
	Created int `json:"created"`
	// Updated is the number of existing local records merged
	Updated int `json:"updated"`
	// Skipped is the number of records dropped (unresolved relations)
	Skipped int `json:"skipped"`
	// Processed is the number of external records examined
	Processed int `json:"processed"`
	// TotalInExternal is the total reported by the external CRM
	TotalInExternal int `json:"totalInExternal"`
	// HasMore indicates another page exists
	HasMore bool `json:"hasMore"`
	// NextOffset is the offset for the next page
	NextOffset int `json:"nextOffset"`
	// Errors holds per-record messages for skipped or failed records
	Errors []string `json:"errors,omitempty"`
	// Duration is how long the invocation took
	Duration time.Duration `json:"duration"`
	// FullSyncCompleted is set by the batch driver once pagination is done
	FullSyncCompleted bool `json:"fullSyncCompleted,omitempty"`
}

// merge folds a page result into an accumulating aggregate
func (r *Result) merge(page *Result) {
	r.Created += page.Created
	r.Updated += page.Updated
	r.Skipped += page.Skipped
	r.Processed += page.Processed
	r.TotalInExternal = page.TotalInExternal
	r.HasMore = page.HasMore
	r.NextOffset = page.NextOffset
	r.Errors = append(r.Errors, page.Errors...)
}

// EntitySyncer is the shared contract across entity types: fetch one page,
// map, and idempotently upsert. Implementations never fail a whole page
// for one bad record.
type EntitySyncer interface {
	// Name returns the stage name this syncer serves
	Name() string

	// Sync fetches and reconciles one page of external records
	Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error)
}

// pageRequest converts Options into the client pagination shape
func pageRequest(opts Options) crm.PageRequest {
	return crm.PageRequest{
		Limit:     opts.Limit,
		Offset:    opts.Offset,
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
	}
}

// finishPage stamps pagination and timing fields onto a page result
func finishPage(res *Result, opts Options, total int, start time.Time) *Result {
	res.TotalInExternal = total
	res.HasMore = opts.Offset+opts.Limit < total
	res.NextOffset = opts.Offset + opts.Limit
	res.Duration = time.Since(start)
	return res
}

// emptyResult is the soft-success outcome for tenants missing a feature
func emptyResult(start time.Time) *Result {
	return &Result{Duration: time.Since(start)}
}

// recordError formats a per-record error entry keyed by external id
func recordError(externalID string, err error) string {
	return fmt.Sprintf("%s: %v", externalID, err)
}
