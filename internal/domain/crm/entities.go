package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SyncSource marks records created by the sync pipeline rather than by a
// user-facing surface.
const SyncSource = "crm-sync"

// ---------------------------------------------------------------------------
// Setup Artifacts (stored on the tenant record)
// ---------------------------------------------------------------------------

// PipelineStage is one stage within a sales pipeline
type PipelineStage struct {
	// ExternalID is the stage id on the external CRM
	ExternalID string `json:"id"`
	// Name is the stage display name
	Name string `json:"name"`
	// Position is the stage order within the pipeline
	Position int `json:"position"`
}

// Pipeline is a sales pipeline definition pulled from the external CRM
type Pipeline struct {
	// ExternalID is the pipeline id on the external CRM
	ExternalID string `json:"id"`
	// Name is the pipeline display name
	Name string `json:"name"`
	// Stages are the ordered pipeline stages
	Stages []PipelineStage `json:"stages,omitempty"`
}

// Calendar is a booking calendar definition pulled from the external CRM
type Calendar struct {
	// ExternalID is the calendar id on the external CRM
	ExternalID string `json:"id"`
	// Name is the calendar display name
	Name string `json:"name"`
	// Description is the calendar description
	Description string `json:"description,omitempty"`
	// IsActive indicates whether the calendar accepts bookings
	IsActive bool `json:"isActive"`
}

// CRMUser is a CRM user account within the tenant's location
type CRMUser struct {
	// ExternalID is the user id on the external CRM
	ExternalID string `json:"id"`
	// Name is the user's display name
	Name string `json:"name"`
	// Email is the user's email
	Email string `json:"email,omitempty"`
	// Phone is the user's phone
	Phone string `json:"phone,omitempty"`
	// Role is the user's CRM role
	Role string `json:"role,omitempty"`
}

// Tag is a contact tag definition
type Tag struct {
	// ExternalID is the tag id on the external CRM
	ExternalID string `json:"id"`
	// Name is the tag name
	Name string `json:"name"`
}

// CustomValue is a location-level custom value
type CustomValue struct {
	// ExternalID is the custom value id on the external CRM
	ExternalID string `json:"id"`
	// Name is the custom value name
	Name string `json:"name"`
	// Value is the stored value
	Value string `json:"value,omitempty"`
}

// LocationProfile is the business profile of a location
type LocationProfile struct {
	// ExternalID is the location id
	ExternalID string
	// CompanyID is the parent company id, if any
	CompanyID string
	// Name is the business name
	Name string
	// Email is the business email
	Email string
	// Phone is the business phone
	Phone string
	// Timezone is the location timezone
	Timezone string
}

// ---------------------------------------------------------------------------
// Synced Entities
// ---------------------------------------------------------------------------

// Contact is a person record synced from the external CRM.
// Invariant: at most one local contact per (LocationID, ExternalID).
type Contact struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the contact id on the external CRM (idempotency key)
	ExternalID string
	// FirstName is the contact's first name
	FirstName string
	// LastName is the contact's last name
	LastName string
	// Email is the contact's email (fallback identity)
	Email string
	// Phone is the contact's phone (fallback identity)
	Phone string
	// Address is the street address
	Address string
	// City is the address city
	City string
	// State is the address state/region
	State string
	// PostalCode is the address postal code
	PostalCode string
	// Source is where the contact originated (form, import, sync, ...)
	Source string
	// Tags are the CRM tag names attached to the contact
	Tags []string
	// CustomFields maps custom field key to value
	CustomFields map[string]string
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// FullName returns the contact's display name
func (c *Contact) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// TaskItem is a to-do item attached to a contact
type TaskItem struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the task id on the external CRM
	ExternalID string
	// ContactID is the local contact this task belongs to
	ContactID *uuid.UUID
	// ContactExternalID is the CRM contact id this task references
	ContactExternalID string
	// Title is the task title
	Title string
	// Body is the task description
	Body string
	// DueDate is when the task is due
	DueDate *time.Time
	// Completed indicates the task is done
	Completed bool
	// AssignedTo is the CRM user id the task is assigned to
	AssignedTo string
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// Project is an opportunity synced from the external CRM pipeline
type Project struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the opportunity id on the external CRM
	ExternalID string
	// ContactID is the local contact this project belongs to
	ContactID *uuid.UUID
	// ContactExternalID is the CRM contact id this project references
	ContactExternalID string
	// Title is the opportunity name
	Title string
	// Status is the mapped local status
	Status ProjectStatus
	// PipelineID is the CRM pipeline id
	PipelineID string
	// PipelineStageID is the CRM pipeline stage id
	PipelineStageID string
	// MonetaryValue is the opportunity value
	MonetaryValue decimal.Decimal
	// AssignedTo is the CRM user id the opportunity is assigned to
	AssignedTo string
	// CustomFieldValues maps custom field key to extracted value
	CustomFieldValues map[string]string
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// Appointment is a calendar event synced from the external CRM
type Appointment struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the event id on the external CRM
	ExternalID string
	// ContactID is the local contact this appointment belongs to
	ContactID *uuid.UUID
	// ContactExternalID is the CRM contact id this appointment references
	ContactExternalID string
	// CalendarID is the CRM calendar id
	CalendarID string
	// Title is the appointment title
	Title string
	// Notes are the appointment notes
	Notes string
	// Status is the mapped local status
	Status AppointmentStatus
	// StartTime is when the appointment starts
	StartTime time.Time
	// EndTime is when the appointment ends
	EndTime time.Time
	// AssignedUserID is the CRM user id hosting the appointment
	AssignedUserID string
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// Conversation is a messaging thread synced from the external CRM
type Conversation struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the conversation id on the external CRM
	ExternalID string
	// ContactID is the local contact this conversation belongs to
	ContactID *uuid.UUID
	// ContactExternalID is the CRM contact id this conversation references
	ContactExternalID string
	// Type is the conversation type (SMS, Email, ...)
	Type string
	// UnreadCount is the number of unread messages
	UnreadCount int
	// LastMessageBody is a preview of the most recent message
	LastMessageBody string
	// LastMessageDirection is inbound or outbound
	LastMessageDirection string
	// LastMessageAt is when the most recent message was sent
	LastMessageAt *time.Time
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// Message is a single message within a conversation
type Message struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the message id on the external CRM
	ExternalID string
	// ConversationID is the local conversation this message belongs to
	ConversationID uuid.UUID
	// Direction is inbound or outbound
	Direction string
	// MessageType is the channel type (SMS, Email, ...)
	MessageType string
	// Body is the message body
	Body string
	// SentAt is when the message was sent
	SentAt time.Time
}

// CustomFieldMapping records a CRM custom field definition so later
// stages can translate field ids into stable field keys.
type CustomFieldMapping struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the custom field id on the external CRM
	ExternalID string
	// Name is the field display name
	Name string
	// FieldKey is the stable key used in local custom field maps
	FieldKey string
	// DataType is the CRM field data type
	DataType string
	// Model is the entity the field attaches to (contact|opportunity)
	Model string
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}

// Invoice is a billing document synced from the external CRM
type Invoice struct {
	shared.BaseEntity
	// LocationID is the tenant partition key
	LocationID string
	// ExternalID is the invoice id on the external CRM
	ExternalID string
	// ContactID is the local contact this invoice belongs to
	ContactID *uuid.UUID
	// ContactExternalID is the CRM contact id this invoice references
	ContactExternalID string
	// InvoiceNumber is the human-readable invoice number
	InvoiceNumber string
	// Status is the mapped local status
	Status InvoiceStatus
	// Currency is the ISO currency code
	Currency string
	// Total is the invoice total
	Total decimal.Decimal
	// AmountDue is the outstanding balance
	AmountDue decimal.Decimal
	// IssueDate is when the invoice was issued
	IssueDate *time.Time
	// DueDate is when payment is due
	DueDate *time.Time
	// LastSyncedAt is when this record was last reconciled
	LastSyncedAt time.Time
}
