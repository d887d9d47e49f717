package crm

import (
	"context"

	"github.com/google/uuid"
)

// Repositories for synced entities. Every lookup is scoped by locationID
// (the tenant partition key); Save performs create-or-update keyed by the
// internal id.

// ContactRepository persists contacts with fallback identity lookups
type ContactRepository interface {
	// FindByExternalID finds a contact by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Contact, error)

	// FindByEmail finds a contact by email within a location
	FindByEmail(ctx context.Context, locationID, email string) (*Contact, error)

	// FindByPhone finds a contact by phone within a location
	FindByPhone(ctx context.Context, locationID, phone string) (*Contact, error)

	// Save creates or updates a contact
	Save(ctx context.Context, c *Contact) error

	// CountForLocation counts contacts within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// ProjectRepository persists opportunities
type ProjectRepository interface {
	// FindByExternalID finds a project by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Project, error)

	// Save creates or updates a project
	Save(ctx context.Context, p *Project) error

	// CountForLocation counts projects within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// AppointmentRepository persists appointments
type AppointmentRepository interface {
	// FindByExternalID finds an appointment by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Appointment, error)

	// Save creates or updates an appointment
	Save(ctx context.Context, a *Appointment) error

	// CountForLocation counts appointments within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// ConversationRepository persists conversations
type ConversationRepository interface {
	// FindByExternalID finds a conversation by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Conversation, error)

	// Save creates or updates a conversation
	Save(ctx context.Context, c *Conversation) error

	// CountForLocation counts conversations within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// MessageRepository persists messages within conversations
type MessageRepository interface {
	// FindByExternalID finds a message by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Message, error)

	// Save creates or updates a message
	Save(ctx context.Context, m *Message) error
}

// TaskRepository persists task items
type TaskRepository interface {
	// FindByExternalID finds a task by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*TaskItem, error)

	// Save creates or updates a task
	Save(ctx context.Context, t *TaskItem) error

	// CountForLocation counts tasks within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// CustomFieldRepository persists custom field mappings
type CustomFieldRepository interface {
	// FindByExternalID finds a mapping by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*CustomFieldMapping, error)

	// FindAllForLocation returns all mappings for a location
	FindAllForLocation(ctx context.Context, locationID string) ([]CustomFieldMapping, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, m *CustomFieldMapping) error
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	// FindByExternalID finds an invoice by (locationID, externalID)
	FindByExternalID(ctx context.Context, locationID, externalID string) (*Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, inv *Invoice) error

	// CountForLocation counts invoices within a location
	CountForLocation(ctx context.Context, locationID string) (int64, error)
}

// ContactResolver resolves a local contact for an external reference using
// ordered matchers: external id first, then email, then phone. First match
// wins. Returns ErrRelationUnresolved when nothing matches.
type ContactResolver interface {
	// Resolve returns the local contact id for an external contact
	Resolve(ctx context.Context, locationID, externalID, email, phone string) (uuid.UUID, error)
}
