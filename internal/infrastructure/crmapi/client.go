package crmapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
)

// maxResponseSize is the maximum allowed response size from the CRM (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client implements the crm.Client port against the external CRM REST API
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a CRM API client with the given configuration
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

// ---------------------------------------------------------------------------
// Token Exchange
// ---------------------------------------------------------------------------

// ExchangeCode exchanges an authorization code for a token set
func (c *Client) ExchangeCode(ctx context.Context, code string) (*crm.TokenResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", crm.ErrValidation)
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"redirect_uri":  {c.config.RedirectURL},
		"code":          {code},
	}
	return c.postTokenForm(ctx, "/oauth/token", form, "")
}

// RefreshAccessToken obtains a fresh token set via a refresh token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*crm.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", crm.ErrValidation)
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"refresh_token": {refreshToken},
	}
	return c.postTokenForm(ctx, "/oauth/token", form, "")
}

// DeriveLocationToken mints a location-scoped token from a company credential
func (c *Client) DeriveLocationToken(ctx context.Context, companyToken, companyID, locationID string) (*crm.TokenResponse, error) {
	if companyToken == "" || locationID == "" {
		return nil, fmt.Errorf("%w: company token and location id are required", crm.ErrValidation)
	}
	form := url.Values{
		"companyId":  {companyID},
		"locationId": {locationID},
	}
	return c.postTokenForm(ctx, "/oauth/locationToken", form, companyToken)
}

func (c *Client) postTokenForm(ctx context.Context, path string, form url.Values, bearer string) (*crm.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crm.ErrUnexpectedTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", c.config.APIVersion)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	var wire tokenResponse
	if err := c.do(req, &wire); err != nil {
		return nil, err
	}
	if wire.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", crm.ErrAuthFailure)
	}
	return wire.toDomain(), nil
}

// ---------------------------------------------------------------------------
// Setup Data
// ---------------------------------------------------------------------------

// GetLocation fetches the business profile of a location
func (c *Client) GetLocation(ctx context.Context, token, locationID string) (*crm.LocationProfile, error) {
	var envelope locationEnvelope
	if err := c.get(ctx, token, "/locations/"+locationID, nil, &envelope); err != nil {
		return nil, err
	}
	profile := envelope.Location.toDomain()
	if profile.ExternalID == "" {
		profile.ExternalID = locationID
	}
	return profile, nil
}

// ListPipelines fetches all pipelines for a location
func (c *Client) ListPipelines(ctx context.Context, token, locationID string) ([]crm.Pipeline, error) {
	var envelope pipelinesEnvelope
	q := url.Values{"locationId": {locationID}}
	if err := c.get(ctx, token, "/opportunities/pipelines", q, &envelope); err != nil {
		return nil, err
	}
	pipelines := make([]crm.Pipeline, 0, len(envelope.Pipelines))
	for i := range envelope.Pipelines {
		pipelines = append(pipelines, envelope.Pipelines[i].toDomain())
	}
	return pipelines, nil
}

// ListCalendars fetches all calendars for a location
func (c *Client) ListCalendars(ctx context.Context, token, locationID string) ([]crm.Calendar, error) {
	var envelope calendarsEnvelope
	q := url.Values{"locationId": {locationID}}
	if err := c.get(ctx, token, "/calendars/", q, &envelope); err != nil {
		return nil, err
	}
	calendars := make([]crm.Calendar, 0, len(envelope.Calendars))
	for i := range envelope.Calendars {
		calendars = append(calendars, envelope.Calendars[i].toDomain())
	}
	return calendars, nil
}

// ListUsers fetches all CRM users for a location
func (c *Client) ListUsers(ctx context.Context, token, locationID string) ([]crm.CRMUser, error) {
	var envelope usersEnvelope
	q := url.Values{"locationId": {locationID}}
	if err := c.get(ctx, token, "/users/", q, &envelope); err != nil {
		return nil, err
	}
	users := make([]crm.CRMUser, 0, len(envelope.Users))
	for i := range envelope.Users {
		users = append(users, envelope.Users[i].toDomain())
	}
	return users, nil
}

// ListCustomFields fetches custom field definitions for a model
func (c *Client) ListCustomFields(ctx context.Context, token, locationID, model string) ([]crm.CustomFieldMapping, error) {
	var envelope customFieldsEnvelope
	q := url.Values{}
	if model != "" {
		q.Set("model", model)
	}
	if err := c.get(ctx, token, "/locations/"+locationID+"/customFields", q, &envelope); err != nil {
		return nil, err
	}
	fields := make([]crm.CustomFieldMapping, 0, len(envelope.CustomFields))
	for i := range envelope.CustomFields {
		f := envelope.CustomFields[i].toDomain()
		f.LocationID = locationID
		if f.Model == "" {
			f.Model = model
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// ListCustomValues fetches location-level custom values
func (c *Client) ListCustomValues(ctx context.Context, token, locationID string) ([]crm.CustomValue, error) {
	var envelope customValuesEnvelope
	if err := c.get(ctx, token, "/locations/"+locationID+"/customValues", nil, &envelope); err != nil {
		return nil, err
	}
	values := make([]crm.CustomValue, 0, len(envelope.CustomValues))
	for i := range envelope.CustomValues {
		values = append(values, envelope.CustomValues[i].toDomain())
	}
	return values, nil
}

// ListTags fetches all tags for a location
func (c *Client) ListTags(ctx context.Context, token, locationID string) ([]crm.Tag, error) {
	var envelope tagsEnvelope
	if err := c.get(ctx, token, "/locations/"+locationID+"/tags", nil, &envelope); err != nil {
		return nil, err
	}
	tags := make([]crm.Tag, 0, len(envelope.Tags))
	for i := range envelope.Tags {
		tags = append(tags, envelope.Tags[i].toDomain())
	}
	return tags, nil
}

// ---------------------------------------------------------------------------
// Paginated Entities
// ---------------------------------------------------------------------------

// SearchContacts fetches one page of contacts
func (c *Client) SearchContacts(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Contact], error) {
	var envelope contactsEnvelope
	q := pageQuery(locationID, req)
	if err := c.get(ctx, token, "/contacts/", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.Contact]{Total: envelope.Meta.Total}
	for i := range envelope.Contacts {
		contact := envelope.Contacts[i].toDomain()
		contact.LocationID = locationID
		page.Items = append(page.Items, contact)
	}
	return page, nil
}

// ListTasks fetches one page of tasks
func (c *Client) ListTasks(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.TaskItem], error) {
	var envelope tasksEnvelope
	q := pageQuery(locationID, req)
	if err := c.get(ctx, token, "/tasks/search", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.TaskItem]{Total: envelope.Meta.Total}
	for i := range envelope.Tasks {
		task := envelope.Tasks[i].toDomain()
		task.LocationID = locationID
		page.Items = append(page.Items, task)
	}
	return page, nil
}

// SearchProjects fetches one page of opportunities
func (c *Client) SearchProjects(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Project], error) {
	var envelope opportunitiesEnvelope
	q := pageQuery(locationID, req)
	if err := c.get(ctx, token, "/opportunities/search", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.Project]{Total: envelope.Meta.Total}
	for i := range envelope.Opportunities {
		project := envelope.Opportunities[i].toDomain()
		project.LocationID = locationID
		page.Items = append(page.Items, project)
	}
	return page, nil
}

// ListAppointments fetches one page of calendar events within the date range
func (c *Client) ListAppointments(ctx context.Context, token, locationID, calendarID string, req crm.PageRequest) (*crm.Page[crm.Appointment], error) {
	var envelope eventsEnvelope
	q := pageQuery(locationID, req)
	if calendarID != "" {
		q.Set("calendarId", calendarID)
	}
	if !req.StartDate.IsZero() {
		q.Set("startTime", req.StartDate.Format(time.RFC3339))
	}
	if !req.EndDate.IsZero() {
		q.Set("endTime", req.EndDate.Format(time.RFC3339))
	}
	if err := c.get(ctx, token, "/calendars/events", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.Appointment]{Total: envelope.Meta.Total}
	for i := range envelope.Events {
		appointment := envelope.Events[i].toDomain()
		appointment.LocationID = locationID
		page.Items = append(page.Items, appointment)
	}
	return page, nil
}

// SearchConversations fetches one page of conversations
func (c *Client) SearchConversations(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Conversation], error) {
	var envelope conversationsEnvelope
	q := pageQuery(locationID, req)
	if err := c.get(ctx, token, "/conversations/search", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.Conversation]{Total: envelope.Total}
	for i := range envelope.Conversations {
		conversation := envelope.Conversations[i].toDomain()
		conversation.LocationID = locationID
		page.Items = append(page.Items, conversation)
	}
	return page, nil
}

// ListMessages fetches the most recent messages of a conversation
func (c *Client) ListMessages(ctx context.Context, token, conversationID string, limit int) ([]crm.Message, error) {
	var envelope messagesEnvelope
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, token, "/conversations/"+conversationID+"/messages", q, &envelope); err != nil {
		return nil, err
	}
	messages := make([]crm.Message, 0, len(envelope.Messages.Messages))
	for i := range envelope.Messages.Messages {
		messages = append(messages, envelope.Messages.Messages[i].toDomain())
	}
	return messages, nil
}

// ListInvoices fetches one page of invoices
func (c *Client) ListInvoices(ctx context.Context, token, locationID string, req crm.PageRequest) (*crm.Page[crm.Invoice], error) {
	var envelope invoicesEnvelope
	q := url.Values{
		"altId":   {locationID},
		"altType": {"location"},
		"limit":   {strconv.Itoa(req.Limit)},
		"offset":  {strconv.Itoa(req.Offset)},
	}
	if err := c.get(ctx, token, "/invoices/", q, &envelope); err != nil {
		return nil, err
	}
	page := &crm.Page[crm.Invoice]{Total: envelope.Total}
	for i := range envelope.Invoices {
		invoice := envelope.Invoices[i].toDomain()
		invoice.LocationID = locationID
		page.Items = append(page.Items, invoice)
	}
	return page, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// pageQuery builds the standard limit/skip pagination query
func pageQuery(locationID string, req crm.PageRequest) url.Values {
	return url.Values{
		"locationId": {locationID},
		"limit":      {strconv.Itoa(req.Limit)},
		"skip":       {strconv.Itoa(req.Offset)},
	}
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", crm.ErrUnexpectedTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", c.config.APIVersion)
	return c.do(req, out)
}

// do executes the request and decodes the response, classifying transport
// failures into the crm error taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", crm.ErrUnexpectedTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", crm.ErrUnexpectedTransport, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		c.logger.Debug("CRM request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", crm.ErrUnexpectedTransport, err)
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the crm error taxonomy
func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return crm.ErrNotSupported
	case status == http.StatusUnauthorized:
		return crm.ErrAuthFailure
	case status == http.StatusForbidden:
		return crm.ErrPermissionDenied
	case status == http.StatusTooManyRequests:
		return crm.ErrRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", crm.ErrValidation, status, truncate(body, 200))
	default:
		return fmt.Errorf("%w: status %d: %s", crm.ErrUnexpectedTransport, status, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Ensure Client implements the crm.Client port
var _ crm.Client = (*Client)(nil)
