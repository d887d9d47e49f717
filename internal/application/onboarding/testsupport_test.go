package onboarding

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
)

// stubExchange implements crm.Client for token-path tests; only the token
// endpoints are scriptable, everything else reports unavailable.
type stubExchange struct {
	exchangeCode func(ctx context.Context, code string) (*crm.TokenResponse, error)
	refresh      func(ctx context.Context, refreshToken string) (*crm.TokenResponse, error)
	derive       func(ctx context.Context, companyToken, companyID, locationID string) (*crm.TokenResponse, error)
}

func (c *stubExchange) ExchangeCode(ctx context.Context, code string) (*crm.TokenResponse, error) {
	if c.exchangeCode == nil {
		return nil, crm.ErrNotSupported
	}
	return c.exchangeCode(ctx, code)
}

func (c *stubExchange) RefreshAccessToken(ctx context.Context, refreshToken string) (*crm.TokenResponse, error) {
	if c.refresh == nil {
		return nil, crm.ErrNotSupported
	}
	return c.refresh(ctx, refreshToken)
}

func (c *stubExchange) DeriveLocationToken(ctx context.Context, companyToken, companyID, locationID string) (*crm.TokenResponse, error) {
	if c.derive == nil {
		return nil, crm.ErrNotSupported
	}
	return c.derive(ctx, companyToken, companyID, locationID)
}

func (c *stubExchange) GetLocation(context.Context, string, string) (*crm.LocationProfile, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListPipelines(context.Context, string, string) ([]crm.Pipeline, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListCalendars(context.Context, string, string) ([]crm.Calendar, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListUsers(context.Context, string, string) ([]crm.CRMUser, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListCustomFields(context.Context, string, string, string) ([]crm.CustomFieldMapping, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListCustomValues(context.Context, string, string) ([]crm.CustomValue, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListTags(context.Context, string, string) ([]crm.Tag, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) SearchContacts(context.Context, string, string, crm.PageRequest) (*crm.Page[crm.Contact], error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListTasks(context.Context, string, string, crm.PageRequest) (*crm.Page[crm.TaskItem], error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) SearchProjects(context.Context, string, string, crm.PageRequest) (*crm.Page[crm.Project], error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListAppointments(context.Context, string, string, string, crm.PageRequest) (*crm.Page[crm.Appointment], error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) SearchConversations(context.Context, string, string, crm.PageRequest) (*crm.Page[crm.Conversation], error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListMessages(context.Context, string, string, int) ([]crm.Message, error) {
	return nil, crm.ErrNotSupported
}

func (c *stubExchange) ListInvoices(context.Context, string, string, crm.PageRequest) (*crm.Page[crm.Invoice], error) {
	return nil, crm.ErrNotSupported
}

var _ crm.Client = (*stubExchange)(nil)

// memTenantRepo is an in-memory tenant.Repository recording narrow writes
type memTenantRepo struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]*tenant.Tenant
	progress map[string]tenant.StageProgress
	setup    map[string]any
	counts   map[string]int
}

func newMemTenantRepo(ts ...*tenant.Tenant) *memTenantRepo {
	repo := &memTenantRepo{
		tenants:  make(map[uuid.UUID]*tenant.Tenant),
		progress: make(map[string]tenant.StageProgress),
		setup:    make(map[string]any),
		counts:   make(map[string]int),
	}
	for _, t := range ts {
		repo.tenants[t.ID] = t
	}
	return repo
}

func (r *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memTenantRepo) FindByLocationID(_ context.Context, locationID string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.LocationID == locationID {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTenantRepo) Save(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	return nil
}

func (r *memTenantRepo) UpdateCredential(_ context.Context, id uuid.UUID, cred *tenant.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		t.Credential = cred
		return nil
	}
	return shared.ErrNotFound
}

func (r *memTenantRepo) UpdateStageProgress(_ context.Context, id uuid.UUID, stage string, progress tenant.StageProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[stage] = progress
	if t, ok := r.tenants[id]; ok {
		t.SyncProgress[stage] = progress
	}
	return nil
}

func (r *memTenantRepo) UpdateProfile(_ context.Context, id uuid.UUID, name, email, phone, timezone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		t.Name, t.Email, t.Phone, t.Timezone = name, email, phone, timezone
		return nil
	}
	return shared.ErrNotFound
}

func (r *memTenantRepo) UpdateSetupData(_ context.Context, _ uuid.UUID, field string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setup[field] = value
	return nil
}

func (r *memTenantRepo) UpdateEntityCount(_ context.Context, _ uuid.UUID, entity string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[entity] = count
	return nil
}

func (r *memTenantRepo) SetSetupCompleted(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		t.SetupCompleted = true
		return nil
	}
	return shared.ErrNotFound
}

var _ tenant.Repository = (*memTenantRepo)(nil)

// memCompanyRepo is an in-memory tenant.CompanyRepository
type memCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*tenant.Company
}

func newMemCompanyRepo(cs ...*tenant.Company) *memCompanyRepo {
	repo := &memCompanyRepo{companies: make(map[string]*tenant.Company)}
	for _, c := range cs {
		repo.companies[c.CompanyID] = c
	}
	return repo
}

func (r *memCompanyRepo) FindByCompanyID(_ context.Context, companyID string) (*tenant.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.companies[companyID]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCompanyRepo) Save(_ context.Context, c *tenant.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[c.CompanyID] = c
	return nil
}

func (r *memCompanyRepo) UpdateCredential(_ context.Context, id uuid.UUID, cred *tenant.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.companies {
		if c.ID == id {
			c.Credential = cred
			return nil
		}
	}
	return shared.ErrNotFound
}

var _ tenant.CompanyRepository = (*memCompanyRepo)(nil)
