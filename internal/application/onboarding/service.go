package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/lock"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
	"github.com/lpai/backend/internal/infrastructure/tasks"
)

// InstallOutcome describes the result of completing an OAuth authorization
type InstallOutcome struct {
	// TenantID is the local tenant the install resolved to, if any
	TenantID uuid.UUID
	// LocationID is the external location id of that tenant
	LocationID string
	// CompanyLevel is true for a company-scoped (agency) install
	CompanyLevel bool
	// BootstrappedLocations is how many placeholder tenants were created
	// for a company install's approved locations
	BootstrappedLocations int
	// RunDispatched is true when an onboarding run was queued
	RunDispatched bool
}

// InstallService completes OAuth authorizations: it exchanges the code,
// persists credentials, and dispatches the orchestrator detached from the
// HTTP request. The install lock is acquired before persisting so a
// concurrent callback for the same tenant is rejected early.
type InstallService struct {
	client       crm.Client
	tenants      tenant.Repository
	companies    tenant.CompanyRepository
	locks        lock.InstallLock
	lockTTL      time.Duration
	orchestrator *Orchestrator
	runner       *tasks.Runner
	logger       *zap.Logger
}

// NewInstallService creates a new InstallService
func NewInstallService(client crm.Client, tenants tenant.Repository, companies tenant.CompanyRepository, locks lock.InstallLock, lockTTL time.Duration, orchestrator *Orchestrator, runner *tasks.Runner, logger *zap.Logger) *InstallService {
	return &InstallService{
		client:       client,
		tenants:      tenants,
		companies:    companies,
		locks:        locks,
		lockTTL:      lockTTL,
		orchestrator: orchestrator,
		runner:       runner,
		logger:       logger,
	}
}

// CompleteAuthorization exchanges the authorization code and branches on
// the grant scope. Company grants persist a parent credential and may
// bootstrap placeholder child tenants; location grants create-or-update
// the single tenant and queue a full onboarding run.
func (s *InstallService) CompleteAuthorization(ctx context.Context, code, locationID, companyID string) (*InstallOutcome, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", crm.ErrValidation)
	}

	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if tenant.UserType(token.UserType) == tenant.UserTypeCompany {
		return s.completeCompanyInstall(ctx, token, locationID)
	}

	if token.LocationID != "" {
		locationID = token.LocationID
	}
	if companyID == "" {
		companyID = token.CompanyID
	}
	if locationID == "" {
		return nil, fmt.Errorf("%w: token grant carries no location id", crm.ErrValidation)
	}
	return s.completeLocationInstall(ctx, token, locationID, companyID)
}

// completeCompanyInstall persists the company credential and bootstraps a
// placeholder tenant per approved location so later webhooks and derived
// installs have a record to attach to.
func (s *InstallService) completeCompanyInstall(ctx context.Context, token *crm.TokenResponse, locationID string) (*InstallOutcome, error) {
	companyID := token.CompanyID
	if companyID == "" {
		return nil, fmt.Errorf("%w: company grant carries no company id", crm.ErrValidation)
	}

	cred := CredentialFromToken(token, false)
	company, err := s.companies.FindByCompanyID(ctx, companyID)
	switch {
	case err == nil:
		company.Credential = cred
	case errors.Is(err, shared.ErrNotFound):
		company = tenant.NewCompany(companyID)
		company.Credential = cred
	default:
		return nil, err
	}
	if err := s.companies.Save(ctx, company); err != nil {
		return nil, err
	}

	outcome := &InstallOutcome{CompanyLevel: true}
	for _, loc := range token.ApprovedLocations {
		created, err := s.bootstrapTenant(ctx, loc, companyID)
		if err != nil {
			s.logger.Warn("failed to bootstrap tenant for approved location",
				zap.String("companyId", companyID),
				zap.String("locationId", loc),
				zap.Error(err))
			continue
		}
		if created {
			outcome.BootstrappedLocations++
		}
	}

	// A callback naming a specific location continues as a location
	// install using the freshly stored parent credential.
	if locationID != "" {
		t, err := s.findOrCreateTenant(ctx, locationID, companyID)
		if err != nil {
			return nil, err
		}
		outcome.TenantID = t.ID
		outcome.LocationID = locationID
		if err := s.dispatchRun(ctx, t); err != nil {
			return nil, err
		}
		outcome.RunDispatched = true
	}

	s.logger.Info("company install completed",
		zap.String("companyId", companyID),
		zap.Int("bootstrappedLocations", outcome.BootstrappedLocations))
	return outcome, nil
}

// completeLocationInstall acquires the install lock before touching the
// tenant record, persists the credential under it, and queues a full
// onboarding run. A duplicate callback is rejected without re-persisting.
func (s *InstallService) completeLocationInstall(ctx context.Context, token *crm.TokenResponse, locationID, companyID string) (*InstallOutcome, error) {
	owner := uuid.NewString()
	key := lock.Key(companyID, locationID)

	acquired, err := s.locks.Acquire(ctx, key, owner, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire install lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}

	t, err := s.findOrCreateTenant(ctx, locationID, companyID)
	if err != nil {
		s.releaseLock(ctx, key, owner)
		return nil, err
	}

	t.Credential = CredentialFromToken(token, false)
	if err := s.tenants.UpdateCredential(ctx, t.ID, t.Credential); err != nil {
		s.releaseLock(ctx, key, owner)
		return nil, err
	}

	if err := s.dispatchLocked(ctx, t, key, owner); err != nil {
		return nil, err
	}

	s.logger.Info("location install completed",
		zap.String("locationId", locationID),
		zap.String("tenantId", t.ID.String()))
	return &InstallOutcome{
		TenantID:      t.ID,
		LocationID:    locationID,
		RunDispatched: true,
	}, nil
}

// dispatchRun acquires the install lock and queues a detached full-sync
// orchestrator run. Returns ErrRunInProgress when another run holds the lock.
func (s *InstallService) dispatchRun(ctx context.Context, t *tenant.Tenant) error {
	owner := uuid.NewString()
	key := lock.Key(t.CompanyID, t.LocationID)

	acquired, err := s.locks.Acquire(ctx, key, owner, s.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire install lock: %w", err)
	}
	if !acquired {
		return ErrRunInProgress
	}
	return s.dispatchLocked(ctx, t, key, owner)
}

// dispatchLocked queues a detached orchestrator run that releases the held
// install lock when it finishes. A dispatch failure releases immediately.
func (s *InstallService) dispatchLocked(ctx context.Context, t *tenant.Tenant, key, owner string) error {
	tenantID := t.ID
	err := s.runner.Dispatch("onboarding:"+t.LocationID, func(taskCtx context.Context) {
		defer s.releaseLock(context.WithoutCancel(taskCtx), key, owner)
		if _, err := s.orchestrator.RunLocked(taskCtx, tenantID, true); err != nil {
			s.logger.Error("detached onboarding run failed",
				zap.String("tenantId", tenantID.String()),
				zap.Error(err))
		}
	})
	if err != nil {
		s.releaseLock(ctx, key, owner)
		return err
	}
	return nil
}

func (s *InstallService) releaseLock(ctx context.Context, key, owner string) {
	if err := s.locks.Release(ctx, key, owner); err != nil {
		s.logger.Warn("failed to release install lock",
			zap.String("key", key),
			zap.Error(err))
	}
}

// findOrCreateTenant loads the tenant for a location or creates a fresh
// record on the first authorization callback
func (s *InstallService) findOrCreateTenant(ctx context.Context, locationID, companyID string) (*tenant.Tenant, error) {
	t, err := s.tenants.FindByLocationID(ctx, locationID)
	switch {
	case err == nil:
		if companyID != "" && t.CompanyID == "" {
			t.CompanyID = companyID
			if err := s.tenants.Save(ctx, t); err != nil {
				return nil, err
			}
		}
		return t, nil
	case errors.Is(err, shared.ErrNotFound):
		t = tenant.NewTenant(locationID, companyID)
		if err := s.tenants.Save(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, err
	}
}

// bootstrapTenant creates a placeholder tenant for an approved location.
// Returns true when a new record was created.
func (s *InstallService) bootstrapTenant(ctx context.Context, locationID, companyID string) (bool, error) {
	_, err := s.tenants.FindByLocationID(ctx, locationID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	if err := s.tenants.Save(ctx, tenant.NewTenant(locationID, companyID)); err != nil {
		return false, err
	}
	return true, nil
}
