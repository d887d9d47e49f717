package crm

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// PageRequest describes one page of an external list/search call
type PageRequest struct {
	// Limit is the page size
	Limit int
	// Offset is the number of records to skip
	Offset int
	// StartDate bounds time-ranged entities (appointments), optional
	StartDate time.Time
	// EndDate bounds time-ranged entities (appointments), optional
	EndDate time.Time
}

// Page is one page of external records plus the external total
type Page[T any] struct {
	// Items are the records on this page
	Items []T
	// Total is the total number of records on the external CRM
	Total int
}

// HasMore reports whether another page exists after this request
func (p *Page[T]) HasMore(req PageRequest) bool {
	return req.Offset+req.Limit < p.Total
}

// ---------------------------------------------------------------------------
// Token Exchange
// ---------------------------------------------------------------------------

// TokenResponse is the external CRM's token endpoint response
type TokenResponse struct {
	// AccessToken is the issued bearer token
	AccessToken string
	// RefreshToken is the issued refresh token
	RefreshToken string
	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int
	// TokenType is the token type (usually "Bearer")
	TokenType string
	// UserType is the grant scope ("Location" or "Company")
	UserType string
	// LocationID is set for location-scoped grants
	LocationID string
	// CompanyID is set when the grant belongs to a company
	CompanyID string
	// ApprovedLocations lists location ids covered by a company grant
	ApprovedLocations []string
}

// ---------------------------------------------------------------------------
// Client Port
// ---------------------------------------------------------------------------

// Client is the port interface for the external CRM REST API. The concrete
// HTTP adapter lives in the infrastructure layer; it must classify
// transport failures into the package error taxonomy (ErrNotSupported,
// ErrAuthFailure, ErrPermissionDenied, ErrRateLimited,
// ErrUnexpectedTransport).
type Client interface {
	// ExchangeCode exchanges an authorization code for a token set
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// RefreshAccessToken obtains a fresh token set via a refresh token
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// DeriveLocationToken mints a location-scoped token from a company
	// credential (delegated install path)
	DeriveLocationToken(ctx context.Context, companyToken, companyID, locationID string) (*TokenResponse, error)

	// GetLocation fetches the business profile of a location
	GetLocation(ctx context.Context, token, locationID string) (*LocationProfile, error)

	// ListPipelines fetches all pipelines for a location
	ListPipelines(ctx context.Context, token, locationID string) ([]Pipeline, error)

	// ListCalendars fetches all calendars for a location
	ListCalendars(ctx context.Context, token, locationID string) ([]Calendar, error)

	// ListUsers fetches all CRM users for a location
	ListUsers(ctx context.Context, token, locationID string) ([]CRMUser, error)

	// ListCustomFields fetches custom field definitions for a model
	// (contact or opportunity)
	ListCustomFields(ctx context.Context, token, locationID, model string) ([]CustomFieldMapping, error)

	// ListCustomValues fetches location-level custom values
	ListCustomValues(ctx context.Context, token, locationID string) ([]CustomValue, error)

	// ListTags fetches all tags for a location
	ListTags(ctx context.Context, token, locationID string) ([]Tag, error)

	// SearchContacts fetches one page of contacts
	SearchContacts(ctx context.Context, token, locationID string, req PageRequest) (*Page[Contact], error)

	// ListTasks fetches one page of tasks
	ListTasks(ctx context.Context, token, locationID string, req PageRequest) (*Page[TaskItem], error)

	// SearchProjects fetches one page of opportunities
	SearchProjects(ctx context.Context, token, locationID string, req PageRequest) (*Page[Project], error)

	// ListAppointments fetches one page of calendar events within the
	// request's date range
	ListAppointments(ctx context.Context, token, locationID, calendarID string, req PageRequest) (*Page[Appointment], error)

	// SearchConversations fetches one page of conversations
	SearchConversations(ctx context.Context, token, locationID string, req PageRequest) (*Page[Conversation], error)

	// ListMessages fetches the most recent messages of a conversation
	ListMessages(ctx context.Context, token, conversationID string, limit int) ([]Message, error)

	// ListInvoices fetches one page of invoices
	ListInvoices(ctx context.Context, token, locationID string, req PageRequest) (*Page[Invoice], error)
}
