package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for tenant records. Progress, credential
// and count writers are deliberately narrow (field-scoped) so concurrent
// stage writes never clobber each other with whole-record rewrites.
type Repository interface {
	// FindByID finds a tenant by its internal id
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByLocationID finds a tenant by its external CRM location id
	FindByLocationID(ctx context.Context, locationID string) (*Tenant, error)

	// Save creates or updates the whole tenant record. Used only at
	// creation time; running stages use the field-scoped writers below.
	Save(ctx context.Context, t *Tenant) error

	// UpdateCredential replaces only the credential field
	UpdateCredential(ctx context.Context, id uuid.UUID, cred *Credential) error

	// UpdateStageProgress replaces only syncProgress[stage]
	UpdateStageProgress(ctx context.Context, id uuid.UUID, stage string, progress StageProgress) error

	// UpdateProfile replaces only the profile fields pulled from the CRM
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email, phone, timezone string) error

	// UpdateSetupData replaces only the named setup artifact (pipelines,
	// calendars, users, tags, customValues) with the given JSON document
	UpdateSetupData(ctx context.Context, id uuid.UUID, field string, value any) error

	// UpdateEntityCount replaces only entityCounts[entity]
	UpdateEntityCount(ctx context.Context, id uuid.UUID, entity string, count int) error

	// SetSetupCompleted marks onboarding as finished
	SetSetupCompleted(ctx context.Context, id uuid.UUID) error
}

// CompanyRepository defines persistence for company (agency) records
type CompanyRepository interface {
	// FindByCompanyID finds a company by its external CRM company id
	FindByCompanyID(ctx context.Context, companyID string) (*Company, error)

	// Save creates or updates a company record
	Save(ctx context.Context, c *Company) error

	// UpdateCredential replaces only the credential field
	UpdateCredential(ctx context.Context, id uuid.UUID, cred *Credential) error
}
