package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/lpai/backend/internal/application/sync"
	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/lock"
	"github.com/lpai/backend/internal/domain/tenant"
	"github.com/lpai/backend/internal/infrastructure/notify"
)

// ErrRunInProgress is returned when another onboarding run holds the
// install lock for this tenant
var ErrRunInProgress = errors.New("onboarding: run already in progress for tenant")

// setupStages run on every onboarding invocation, in order. Later stages
// consume artifacts written by earlier ones: custom field mappings must
// exist before opportunity sync can translate field values.
var setupStages = []string{"profile", "pipelines", "calendars", "users", "customFields", "customValues", "tags"}

// entityStages run only on full sync, after the setup stages
var entityStages = []string{"contacts", "tasks", "opportunities", "appointments", "conversations", "invoices"}

// defaultsStage seeds tenant-level defaults and always runs last
const defaultsStage = "defaults"

// StageNames returns the ordered stage list for a run
func StageNames(fullSync bool) []string {
	names := make([]string, 0, len(setupStages)+len(entityStages)+1)
	names = append(names, setupStages...)
	if fullSync {
		names = append(names, entityStages...)
	}
	return append(names, defaultsStage)
}

// RunSummary is the outcome of one orchestrator run
type RunSummary struct {
	// Success is true when the run executed; individual stages may still
	// have failed and are reported per-step
	Success bool `json:"success"`
	// Message is a human-readable outcome summary
	Message string `json:"message"`
	// Steps maps stage name to its result
	Steps map[string]*StageOutcome `json:"steps"`
	// Duration is the whole-run duration
	Duration time.Duration `json:"duration"`
}

// StageOutcome is the per-stage slice of a run summary
type StageOutcome struct {
	// Status is the terminal stage status (complete or failed)
	Status tenant.StageStatus `json:"status"`
	// Error holds the failure message when Status is failed
	Error string `json:"error,omitempty"`
	// Result holds counts when the stage produced them
	Result *appsync.Result `json:"result,omitempty"`
}

// FailedStages counts stages that ended in failure
func (s *RunSummary) FailedStages() int {
	failed := 0
	for _, outcome := range s.Steps {
		if outcome.Status == tenant.StageStatusFailed {
			failed++
		}
	}
	return failed
}

// Orchestrator sequences the onboarding pipeline: a fixed ordered list of
// (stageName, handler) pairs, each wrapped by one uniform progress-write
// decorator. Stage failures never abort the pipeline; only pre-flight
// failures do. Every run executes under the install lock.
type Orchestrator struct {
	tenants  tenant.Repository
	tokens   *TokenProvider
	locks    lock.InstallLock
	lockTTL  time.Duration
	driver   *appsync.BatchDriver
	syncers  map[string]appsync.EntitySyncer
	pageSize int
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator over the given syncers. The
// syncer map must contain every stage name except "defaults".
func NewOrchestrator(tenants tenant.Repository, tokens *TokenProvider, locks lock.InstallLock, lockTTL time.Duration, driver *appsync.BatchDriver, syncers []appsync.EntitySyncer, pageSize int, notifier notify.Notifier, logger *zap.Logger) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 50
	}
	byName := make(map[string]appsync.EntitySyncer, len(syncers))
	for _, s := range syncers {
		byName[s.Name()] = s
	}
	return &Orchestrator{
		tenants:  tenants,
		tokens:   tokens,
		locks:    locks,
		lockTTL:  lockTTL,
		driver:   driver,
		syncers:  byName,
		pageSize: pageSize,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes the onboarding pipeline for a tenant. It acquires the
// install lock, runs every stage sequentially, isolates stage failures,
// and marks the tenant set up when the pipeline finishes.
func (o *Orchestrator) Run(ctx context.Context, tenantID uuid.UUID, fullSync bool) (*RunSummary, error) {
	start := time.Now()

	t, err := o.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	owner := uuid.NewString()
	key := lock.Key(t.CompanyID, t.LocationID)
	acquired, err := o.locks.Acquire(ctx, key, owner, o.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire install lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := o.locks.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			o.logger.Warn("failed to release install lock",
				zap.String("key", key),
				zap.Error(err))
		}
	}()

	return o.runLocked(ctx, t, fullSync, start)
}

// RunLocked executes the pipeline for a caller that already holds the
// install lock (the authorization callback acquires before persisting).
func (o *Orchestrator) RunLocked(ctx context.Context, tenantID uuid.UUID, fullSync bool) (*RunSummary, error) {
	start := time.Now()
	t, err := o.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return o.runLocked(ctx, t, fullSync, start)
}

func (o *Orchestrator) runLocked(ctx context.Context, t *tenant.Tenant, fullSync bool, start time.Time) (*RunSummary, error) {
	// Pre-flight: a tenant with no resolvable credential aborts before any
	// stage runs.
	if _, err := o.tokens.Resolve(ctx, t); err != nil {
		o.writeOverall(ctx, t, tenant.StageProgress{
			Status:      tenant.StageStatusFailed,
			Error:       err.Error(),
			CompletedAt: timePtr(time.Now()),
		})
		o.notifier.Alert(ctx, "onboarding.preflight_failure", map[string]any{
			"locationId": t.LocationID,
			"reason":     err.Error(),
		})
		return nil, err
	}

	stages := StageNames(fullSync)
	o.resetProgress(ctx, t, stages)
	o.writeOverall(ctx, t, tenant.StageProgress{
		Status:    tenant.StageStatusSyncing,
		Total:     len(stages),
		StartedAt: timePtr(start),
	})

	o.logger.Info("onboarding run started",
		zap.String("locationId", t.LocationID),
		zap.Bool("fullSync", fullSync),
		zap.Int("stages", len(stages)))

	summary := &RunSummary{
		Success: true,
		Steps:   make(map[string]*StageOutcome, len(stages)),
	}
	for i, name := range stages {
		summary.Steps[name] = o.runStage(ctx, t, name, fullSync)

		o.writeOverall(ctx, t, tenant.StageProgress{
			Status:    tenant.StageStatusSyncing,
			Current:   i + 1,
			Total:     len(stages),
			Percent:   (i + 1) * 100 / len(stages),
			StartedAt: timePtr(start),
		})
	}

	now := time.Now()
	o.writeOverall(ctx, t, tenant.StageProgress{
		Status:      tenant.StageStatusComplete,
		Current:     len(stages),
		Total:       len(stages),
		Percent:     100,
		StartedAt:   timePtr(start),
		CompletedAt: timePtr(now),
		DurationMS:  now.Sub(start).Milliseconds(),
	})
	if err := o.tenants.SetSetupCompleted(ctx, t.ID); err != nil {
		o.logger.Error("failed to mark tenant setup completed",
			zap.String("locationId", t.LocationID),
			zap.Error(err))
	}

	summary.Duration = time.Since(start)
	if failed := summary.FailedStages(); failed > 0 {
		summary.Message = fmt.Sprintf("onboarding finished with %d of %d stages failed", failed, len(stages))
		o.notifier.Alert(ctx, "onboarding.partial_failure", map[string]any{
			"locationId":   t.LocationID,
			"failedStages": failed,
			"totalStages":  len(stages),
		})
	} else {
		summary.Message = fmt.Sprintf("onboarding finished, %d stages complete", len(stages))
		o.notifier.Alert(ctx, "onboarding.completed", map[string]any{
			"locationId": t.LocationID,
			"stages":     len(stages),
			"durationMs": summary.Duration.Milliseconds(),
		})
	}

	o.logger.Info("onboarding run finished",
		zap.String("locationId", t.LocationID),
		zap.Int("failedStages", summary.FailedStages()),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// runStage wraps one stage handler with the uniform progress-write
// decorator. Failures are recorded and swallowed so sibling stages run.
func (o *Orchestrator) runStage(ctx context.Context, t *tenant.Tenant, name string, fullSync bool) *StageOutcome {
	stageStart := time.Now()
	o.writeStage(ctx, t, name, tenant.StageProgress{
		Status:    tenant.StageStatusSyncing,
		StartedAt: timePtr(stageStart),
	})

	result, err := o.invokeStage(ctx, t, name, fullSync)
	now := time.Now()
	if err != nil {
		o.writeStage(ctx, t, name, tenant.StageProgress{
			Status:      tenant.StageStatusFailed,
			Error:       err.Error(),
			StartedAt:   timePtr(stageStart),
			CompletedAt: timePtr(now),
			DurationMS:  now.Sub(stageStart).Milliseconds(),
		})
		o.logger.Warn("onboarding stage failed",
			zap.String("locationId", t.LocationID),
			zap.String("stage", name),
			zap.Error(err))
		return &StageOutcome{Status: tenant.StageStatusFailed, Error: err.Error()}
	}

	progress := tenant.StageProgress{
		Status:      tenant.StageStatusComplete,
		StartedAt:   timePtr(stageStart),
		CompletedAt: timePtr(now),
		DurationMS:  now.Sub(stageStart).Milliseconds(),
	}
	if result != nil {
		progress.Current = result.Processed
		progress.Total = result.TotalInExternal
		progress.Created = result.Created
		progress.Updated = result.Updated
		progress.Skipped = result.Skipped
		if result.TotalInExternal > 0 {
			progress.Percent = result.Processed * 100 / result.TotalInExternal
		} else {
			progress.Percent = 100
		}
	}
	o.writeStage(ctx, t, name, progress)
	return &StageOutcome{Status: tenant.StageStatusComplete, Result: result}
}

// invokeStage dispatches one stage to its handler
func (o *Orchestrator) invokeStage(ctx context.Context, t *tenant.Tenant, name string, fullSync bool) (*appsync.Result, error) {
	if name == defaultsStage {
		return o.seedDefaults(ctx, t)
	}

	syncer, ok := o.syncers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for stage %q", crm.ErrValidation, name)
	}

	opts := appsync.Options{Limit: o.pageSize, FullSync: fullSync}
	if fullSync && isEntityStage(name) {
		return o.driver.Run(ctx, syncer, t, opts)
	}
	return syncer.Sync(ctx, t, opts)
}

// seedDefaults writes the default tenant preferences document. Idempotent;
// it always overwrites with the same values.
func (o *Orchestrator) seedDefaults(ctx context.Context, t *tenant.Tenant) (*appsync.Result, error) {
	start := time.Now()
	defaults := map[string]any{
		"currency":          "USD",
		"quoteValidityDays": 30,
		"taxRate":           0,
		"appointmentBuffer": "15m",
	}
	if err := o.tenants.UpdateSetupData(ctx, t.ID, defaultsStage, defaults); err != nil {
		return nil, err
	}
	return &appsync.Result{
		Updated:         1,
		Processed:       1,
		TotalInExternal: 1,
		Duration:        time.Since(start),
	}, nil
}

// resetProgress resets every planned stage back to pending for a fresh run
func (o *Orchestrator) resetProgress(ctx context.Context, t *tenant.Tenant, stages []string) {
	for _, name := range stages {
		o.writeStage(ctx, t, name, tenant.StageProgress{Status: tenant.StageStatusPending})
	}
}

// writeStage persists one stage progress record. Progress writes are
// best-effort: a failed write is logged but never fails the stage.
func (o *Orchestrator) writeStage(ctx context.Context, t *tenant.Tenant, name string, progress tenant.StageProgress) {
	if err := o.tenants.UpdateStageProgress(ctx, t.ID, name, progress); err != nil {
		o.logger.Warn("failed to write stage progress",
			zap.String("locationId", t.LocationID),
			zap.String("stage", name),
			zap.Error(err))
	}
}

func (o *Orchestrator) writeOverall(ctx context.Context, t *tenant.Tenant, progress tenant.StageProgress) {
	o.writeStage(ctx, t, tenant.OverallStageKey, progress)
}

func isEntityStage(name string) bool {
	for _, s := range entityStages {
		if s == name {
			return true
		}
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	return &t
}
