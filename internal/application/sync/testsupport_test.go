package sync

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
)

// staticTokens resolves every tenant to the same credential
type staticTokens struct {
	cred *tenant.Credential
	err  error
}

func (s *staticTokens) Resolve(context.Context, *tenant.Tenant) (*tenant.Credential, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cred, nil
}

func testTokens() *staticTokens {
	return &staticTokens{cred: &tenant.Credential{AccessToken: "tok"}}
}

func testTenant() *tenant.Tenant {
	return tenant.NewTenant("loc_1", "comp_1")
}

// stubClient implements crm.Client via optional function fields; any call
// without a configured function reports the feature as unavailable.
type stubClient struct {
	exchangeCode        func(ctx context.Context, code string) (*crm.TokenResponse, error)
	refreshAccessToken  func(ctx context.Context, refreshToken string) (*crm.TokenResponse, error)
	deriveLocationToken func(ctx context.Context, companyToken, companyID, locationID string) (*crm.TokenResponse, error)
	getLocation         func(ctx context.Context, token, locationID string) (*crm.LocationProfile, error)
	listPipelines       func(ctx context.Context, token, locationID string) ([]crm.Pipeline, error)
	listCalendars       func(ctx context.Context, token, locationID string) ([]crm.Calendar, error)
	listUsers           func(ctx context.Context, token, locationID string) ([]crm.CRMUser, error)
	listCustomFields    func(ctx context.Context, token, locationID, model string) ([]crm.CustomFieldMapping, error)
	listCustomValues    func(ctx context.Context, token, locationID string) ([]crm.CustomValue, error)
	listTags            func(ctx context.Context, token, locationID string) ([]crm.Tag, error)
	searchContacts      func(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Contact], error)
	listTasks           func(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.TaskItem], error)
	searchProjects      func(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Project], error)
	listAppointments    func(ctx context.Context, token, locationID, calendarID string, req crm.PageRequest) (*crm.Page[crm.Appointment], error)
	searchConversations func(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Conversation], error)
	listMessages        func(ctx context.Context, token, conversationID string, limit int) ([]crm.Message, error)
	listInvoices        func(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Invoice], error)
}

func (c *stubClient) ExchangeCode(ctx context.Context, code string) (*crm.TokenResponse, error) {
	if c.exchangeCode == nil {
		return nil, crm.ErrNotSupported
	}
	return c.exchangeCode(ctx, code)
}

func (c *stubClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*crm.TokenResponse, error) {
	if c.refreshAccessToken == nil {
		return nil, crm.ErrNotSupported
	}
	return c.refreshAccessToken(ctx, refreshToken)
}

func (c *stubClient) DeriveLocationToken(ctx context.Context, companyToken, companyID, locationID string) (*crm.TokenResponse, error) {
	if c.deriveLocationToken == nil {
		return nil, crm.ErrNotSupported
	}
	return c.deriveLocationToken(ctx, companyToken, companyID, locationID)
}

func (c *stubClient) GetLocation(ctx context.Context, token, locationID string) (*crm.LocationProfile, error) {
	if c.getLocation == nil {
		return nil, crm.ErrNotSupported
	}
	return c.getLocation(ctx, token, locationID)
}

func (c *stubClient) ListPipelines(ctx context.Context, token, locationID string) ([]crm.Pipeline, error) {
	if c.listPipelines == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listPipelines(ctx, token, locationID)
}

func (c *stubClient) ListCalendars(ctx context.Context, token, locationID string) ([]crm.Calendar, error) {
	if c.listCalendars == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listCalendars(ctx, token, locationID)
}

func (c *stubClient) ListUsers(ctx context.Context, token, locationID string) ([]crm.CRMUser, error) {
	if c.listUsers == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listUsers(ctx, token, locationID)
}

func (c *stubClient) ListCustomFields(ctx context.Context, token, locationID, model string) ([]crm.CustomFieldMapping, error) {
	if c.listCustomFields == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listCustomFields(ctx, token, locationID, model)
}

func (c *stubClient) ListCustomValues(ctx context.Context, token, locationID string) ([]crm.CustomValue, error) {
	if c.listCustomValues == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listCustomValues(ctx, token, locationID)
}

func (c *stubClient) ListTags(ctx context.Context, token, locationID string) ([]crm.Tag, error) {
	if c.listTags == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listTags(ctx, token, locationID)
}

func (c *stubClient) SearchContacts(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Contact], error) {
	if c.searchContacts == nil {
		return nil, crm.ErrNotSupported
	}
	return c.searchContacts(ctx, token, locationID, req)
}

func (c *stubClient) ListTasks(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.TaskItem], error) {
	if c.listTasks == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listTasks(ctx, token, locationID, req)
}

func (c *stubClient) SearchProjects(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Project], error) {
	if c.searchProjects == nil {
		return nil, crm.ErrNotSupported
	}
	return c.searchProjects(ctx, token, locationID, req)
}

func (c *stubClient) ListAppointments(ctx context.Context, token, locationID, calendarID string, req crm.PageRequest) (*crm.Page[crm.Appointment], error) {
	if c.listAppointments == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listAppointments(ctx, token, locationID, calendarID, req)
}

func (c *stubClient) SearchConversations(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Conversation], error) {
	if c.searchConversations == nil {
		return nil, crm.ErrNotSupported
	}
	return c.searchConversations(ctx, token, locationID, req)
}

func (c *stubClient) ListMessages(ctx context.Context, token, conversationID string, limit int) ([]crm.Message, error) {
	if c.listMessages == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listMessages(ctx, token, conversationID, limit)
}

func (c *stubClient) ListInvoices(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Invoice], error) {
	if c.listInvoices == nil {
		return nil, crm.ErrNotSupported
	}
	return c.listInvoices(ctx, token, locationID, req)
}

var _ crm.Client = (*stubClient)(nil)

// pageOf slices a backing dataset according to the page request
func pageOf[T any](all []T, req crm.PageRequest) *crm.Page[T] {
	start := req.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Limit
	if end > len(all) {
		end = len(all)
	}
	return &crm.Page[T]{Items: append([]T(nil), all[start:end]...), Total: len(all)}
}

// memTenantRepo is an in-memory tenant.Repository that records narrow
// writes for assertions
type memTenantRepo struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]*tenant.Tenant
	progress map[string]tenant.StageProgress
	counts   map[string]int
	setup    map[string]any
}

func newMemTenantRepo(ts ...*tenant.Tenant) *memTenantRepo {
	repo := &memTenantRepo{
		tenants:  make(map[uuid.UUID]*tenant.Tenant),
		progress: make(map[string]tenant.StageProgress),
		counts:   make(map[string]int),
		setup:    make(map[string]any),
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

// memContactRepo is an in-memory crm.ContactRepository
type memContactRepo struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*crm.Contact
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{contacts: make(map[uuid.UUID]*crm.Contact)}
}

func (r *memContactRepo) FindByExternalID(_ context.Context, locationID, externalID string) (*crm.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if c.LocationID == locationID && c.ExternalID == externalID && externalID != "" {
			clone := *c
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memContactRepo) FindByEmail(_ context.Context, locationID, email string) (*crm.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if c.LocationID == locationID && strings.EqualFold(c.Email, email) && email != "" {
			clone := *c
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memContactRepo) FindByPhone(_ context.Context, locationID, phone string) (*crm.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if c.LocationID == locationID && c.Phone == phone && phone != "" {
			clone := *c
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memContactRepo) Save(_ context.Context, c *crm.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.contacts[c.ID] = &clone
	return nil
}

func (r *memContactRepo) CountForLocation(_ context.Context, locationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.contacts {
		if c.LocationID == locationID {
			count++
		}
	}
	return count, nil
}

var _ crm.ContactRepository = (*memContactRepo)(nil)

// memCustomFieldRepo is an in-memory crm.CustomFieldRepository
type memCustomFieldRepo struct {
	mu     sync.Mutex
	fields map[uuid.UUID]*crm.CustomFieldMapping
}

func newMemCustomFieldRepo() *memCustomFieldRepo {
	return &memCustomFieldRepo{fields: make(map[uuid.UUID]*crm.CustomFieldMapping)}
}

func (r *memCustomFieldRepo) FindByExternalID(_ context.Context, locationID, externalID string) (*crm.CustomFieldMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.fields {
		if f.LocationID == locationID && f.ExternalID == externalID {
			clone := *f
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCustomFieldRepo) FindAllForLocation(_ context.Context, locationID string) ([]crm.CustomFieldMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []crm.CustomFieldMapping
	for _, f := range r.fields {
		if f.LocationID == locationID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *memCustomFieldRepo) Save(_ context.Context, m *crm.CustomFieldMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *m
	r.fields[m.ID] = &clone
	return nil
}

var _ crm.CustomFieldRepository = (*memCustomFieldRepo)(nil)

// memAppointmentRepo is an in-memory crm.AppointmentRepository
type memAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*crm.Appointment
	saveErr      error
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{appointments: make(map[uuid.UUID]*crm.Appointment)}
}

func (r *memAppointmentRepo) FindByExternalID(_ context.Context, locationID, externalID string) (*crm.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.LocationID == locationID && a.ExternalID == externalID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAppointmentRepo) Save(_ context.Context, a *crm.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *a
	r.appointments[a.ID] = &clone
	return nil
}

func (r *memAppointmentRepo) CountForLocation(_ context.Context, locationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.appointments {
		if a.LocationID == locationID {
			count++
		}
	}
	return count, nil
}

var _ crm.AppointmentRepository = (*memAppointmentRepo)(nil)

// resolverOver adapts a contact repo into an ordered-matcher resolver
type resolverOver struct {
	contacts crm.ContactRepository
}

func (r resolverOver) Resolve(ctx context.Context, locationID, externalID, email, phone string) (uuid.UUID, error) {
	if externalID != "" {
		if c, err := r.contacts.FindByExternalID(ctx, locationID, externalID); err == nil {
			return c.ID, nil
		}
	}
	if email != "" {
		if c, err := r.contacts.FindByEmail(ctx, locationID, email); err == nil {
			return c.ID, nil
		}
	}
	if phone != "" {
		if c, err := r.contacts.FindByPhone(ctx, locationID, phone); err == nil {
			return c.ID, nil
		}
	}
	return uuid.Nil, crm.ErrRelationUnresolved
}

var _ crm.ContactResolver = resolverOver{}
