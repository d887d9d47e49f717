package tenant

import (
	"time"

	"github.com/lpai/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Stage Progress Types
// ---------------------------------------------------------------------------

// StageStatus represents the status of one onboarding stage
type StageStatus string

const (
	// StageStatusPending indicates the stage has not started yet
	StageStatusPending StageStatus = "pending"
	// StageStatusStarting indicates the stage is being prepared
	StageStatusStarting StageStatus = "starting"
	// StageStatusSyncing indicates the stage is actively syncing
	StageStatusSyncing StageStatus = "syncing"
	// StageStatusComplete indicates the stage finished successfully
	StageStatusComplete StageStatus = "complete"
	// StageStatusFailed indicates the stage finished with an error
	StageStatusFailed StageStatus = "failed"
)

// IsValid returns true if the status is valid
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPending, StageStatusStarting, StageStatusSyncing,
		StageStatusComplete, StageStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of StageStatus
func (s StageStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state within a run
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusComplete || s == StageStatusFailed
}

// rank orders statuses for monotonicity checks within a single run
func (s StageStatus) rank() int {
	switch s {
	case StageStatusPending:
		return 0
	case StageStatusStarting:
		return 1
	case StageStatusSyncing:
		return 2
	case StageStatusComplete, StageStatusFailed:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo returns true if moving to next is a forward transition
// within a single run. A fresh run may reset a stage back to pending,
// which is handled by ResetForRun, not by this check.
func (s StageStatus) CanTransitionTo(next StageStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.rank() >= s.rank()
}

// StageProgress tracks the durable progress of one onboarding stage
type StageProgress struct {
	// Status is the stage status (pending|starting|syncing|complete|failed)
	Status StageStatus `json:"status"`
	// Current is the number of records processed so far
	Current int `json:"current,omitempty"`
	// Total is the number of records reported by the external CRM
	Total int `json:"total,omitempty"`
	// Percent is the completion percentage (0-100)
	Percent int `json:"percent,omitempty"`
	// Created is the number of records created by this stage
	Created int `json:"created,omitempty"`
	// Updated is the number of records updated by this stage
	Updated int `json:"updated,omitempty"`
	// Skipped is the number of records skipped by this stage
	Skipped int `json:"skipped,omitempty"`
	// Error holds a human-readable message when Status is failed
	Error string `json:"error,omitempty"`
	// StartedAt is when the stage began
	StartedAt *time.Time `json:"startedAt,omitempty"`
	// CompletedAt is when the stage reached a terminal status
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	// DurationMS is the stage duration in milliseconds
	DurationMS int64 `json:"durationMs,omitempty"`
}

// SyncProgress maps stage name to its durable progress record.
// The reserved key "overall" tracks the whole run.
type SyncProgress map[string]StageProgress

// OverallStageKey is the reserved progress key for the whole run
const OverallStageKey = "overall"

// Stage returns the progress for a stage, defaulting to pending
func (p SyncProgress) Stage(name string) StageProgress {
	if p == nil {
		return StageProgress{Status: StageStatusPending}
	}
	if sp, ok := p[name]; ok {
		return sp
	}
	return StageProgress{Status: StageStatusPending}
}

// ResetForRun resets the given stages back to pending for a fresh run
func (p SyncProgress) ResetForRun(stages []string) {
	for _, name := range stages {
		p[name] = StageProgress{Status: StageStatusPending}
	}
}

// ---------------------------------------------------------------------------
// Credential
// ---------------------------------------------------------------------------

// UserType identifies the scope a credential was issued for
type UserType string

const (
	// UserTypeLocation indicates a tenant-scoped (location) credential
	UserTypeLocation UserType = "Location"
	// UserTypeCompany indicates an agency-scoped (company) credential
	UserTypeCompany UserType = "Company"
)

// Credential holds an OAuth credential issued by the external CRM
type Credential struct {
	// AccessToken is the bearer token used for API calls
	AccessToken string `json:"accessToken"`
	// RefreshToken is used to obtain a new access token
	RefreshToken string `json:"refreshToken,omitempty"`
	// ExpiresAt is when the access token expires
	ExpiresAt time.Time `json:"expiresAt"`
	// TokenType is the token type reported by the CRM (usually "Bearer")
	TokenType string `json:"tokenType,omitempty"`
	// UserType is the grant scope (Location or Company)
	UserType UserType `json:"userType,omitempty"`
	// DerivedFromCompany is true when this credential was minted from a
	// parent company credential rather than a direct install
	DerivedFromCompany bool `json:"derivedFromCompany,omitempty"`
	// InstalledAt is when the credential was persisted
	InstalledAt time.Time `json:"installedAt"`
}

// HasAccessToken returns true if a usable access token is present
func (c *Credential) HasAccessToken() bool {
	return c != nil && c.AccessToken != ""
}

// IsExpiringSoon returns true if the token expires within the window
func (c *Credential) IsExpiringSoon(window time.Duration) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(c.ExpiresAt) < window
}

// IsOlderThan returns true if the credential was installed before the
// given age. Used to trigger best-effort re-derivation so externally
// rotated credentials are picked up.
func (c *Credential) IsOlderThan(age time.Duration) bool {
	if c == nil || c.InstalledAt.IsZero() {
		return false
	}
	return time.Since(c.InstalledAt) > age
}

// ---------------------------------------------------------------------------
// Tenant
// ---------------------------------------------------------------------------

// Tenant represents one customer account scoped by an external CRM
// location id. It is created on the first authorization callback or the
// first webhook reference and is never deleted by this subsystem.
type Tenant struct {
	shared.BaseEntity
	// LocationID is the external CRM location id (tenant partition key)
	LocationID string
	// CompanyID is the optional parent company (agency) id
	CompanyID string
	// Name is the business name reported by the CRM
	Name string
	// Email is the business contact email reported by the CRM
	Email string
	// Phone is the business phone reported by the CRM
	Phone string
	// Timezone is the location timezone reported by the CRM
	Timezone string
	// APIKey is the legacy fallback credential, used only when no OAuth
	// credential can be resolved
	APIKey string
	// Credential is the OAuth credential for this tenant, if installed
	Credential *Credential
	// SyncProgress is the durable per-stage progress document
	SyncProgress SyncProgress
	// SetupData holds the synced setup artifacts (pipelines, calendars,
	// users, tags, customValues) keyed by artifact name
	SetupData map[string]any
	// SetupCompleted is set once a full onboarding run has finished
	SetupCompleted bool
	// SetupCompletedAt is when onboarding last completed
	SetupCompletedAt *time.Time
	// EntityCounts holds per-entity record counts written after each stage
	EntityCounts map[string]int
}

// NewTenant creates a tenant record for a location
func NewTenant(locationID, companyID string) *Tenant {
	return &Tenant{
		BaseEntity:   shared.NewBaseEntity(),
		LocationID:   locationID,
		CompanyID:    companyID,
		SyncProgress: make(SyncProgress),
		SetupData:    make(map[string]any),
		EntityCounts: make(map[string]int),
	}
}

// HasDirectCredential returns true if the tenant has its own access token
func (t *Tenant) HasDirectCredential() bool {
	return t.Credential.HasAccessToken()
}

// ---------------------------------------------------------------------------
// Company
// ---------------------------------------------------------------------------

// Company represents an agency-level account holding a company-scoped
// credential that can mint tenant-scoped tokens for its locations.
type Company struct {
	shared.BaseEntity
	// CompanyID is the external CRM company (agency) id
	CompanyID string
	// Name is the agency name reported by the CRM
	Name string
	// Credential is the company-scoped OAuth credential
	Credential *Credential
}

// NewCompany creates a company record
func NewCompany(companyID string) *Company {
	return &Company{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
	}
}
