package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lpai/backend/internal/domain/crm"
)

// Synced CRM entity models. Every table carries the
// (location_id, external_id) unique pair that backs idempotent upserts.

// ContactModel is the persistence model for the Contact domain entity
type ContactModel struct {
	BaseModel
	LocationID       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_contacts_location_external,priority:1;index:idx_contacts_location_email,priority:1;index:idx_contacts_location_phone,priority:1"`
	ExternalID       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_contacts_location_external,priority:2"`
	FirstName        string    `gorm:"type:varchar(255)"`
	LastName         string    `gorm:"type:varchar(255)"`
	Email            string    `gorm:"type:varchar(255);index:idx_contacts_location_email,priority:2"`
	Phone            string    `gorm:"type:varchar(50);index:idx_contacts_location_phone,priority:2"`
	Address          string    `gorm:"type:varchar(255)"`
	City             string    `gorm:"type:varchar(100)"`
	State            string    `gorm:"type:varchar(100)"`
	PostalCode       string    `gorm:"type:varchar(20)"`
	Source           string    `gorm:"type:varchar(100)"`
	TagsJSON         string    `gorm:"type:jsonb;column:tags"`
	CustomFieldsJSON string    `gorm:"type:jsonb;column:custom_fields"`
	LastSyncedAt     time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact
func (m *ContactModel) ToDomain() *crm.Contact {
	c := &crm.Contact{
		BaseEntity:   m.BaseModel.ToDomain(),
		LocationID:   m.LocationID,
		ExternalID:   m.ExternalID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		Phone:        m.Phone,
		Address:      m.Address,
		City:         m.City,
		State:        m.State,
		PostalCode:   m.PostalCode,
		Source:       m.Source,
		LastSyncedAt: m.LastSyncedAt,
	}
	if m.TagsJSON != "" {
		var tags []string
		if err := json.Unmarshal([]byte(m.TagsJSON), &tags); err == nil {
			c.Tags = tags
		}
	}
	if m.CustomFieldsJSON != "" {
		var fields map[string]string
		if err := json.Unmarshal([]byte(m.CustomFieldsJSON), &fields); err == nil {
			c.CustomFields = fields
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain Contact
func (m *ContactModel) FromDomain(c *crm.Contact) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.LocationID = c.LocationID
	m.ExternalID = c.ExternalID
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.Email = strings.ToLower(c.Email)
	m.Phone = c.Phone
	m.Address = c.Address
	m.City = c.City
	m.State = c.State
	m.PostalCode = c.PostalCode
	m.Source = c.Source
	m.LastSyncedAt = c.LastSyncedAt

	if len(c.Tags) > 0 {
		if jsonBytes, err := json.Marshal(c.Tags); err == nil {
			m.TagsJSON = string(jsonBytes)
		}
	} else {
		m.TagsJSON = "[]"
	}
	if len(c.CustomFields) > 0 {
		if jsonBytes, err := json.Marshal(c.CustomFields); err == nil {
			m.CustomFieldsJSON = string(jsonBytes)
		}
	} else {
		m.CustomFieldsJSON = "{}"
	}
}

// TaskModel is the persistence model for the TaskItem domain entity
type TaskModel struct {
	BaseModel
	LocationID        string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_tasks_location_external,priority:1"`
	ExternalID        string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_tasks_location_external,priority:2"`
	ContactID         *uuid.UUID `gorm:"type:uuid;index"`
	ContactExternalID string     `gorm:"type:varchar(100)"`
	Title             string     `gorm:"type:varchar(500)"`
	Body              string     `gorm:"type:text"`
	DueDate           *time.Time
	Completed         bool      `gorm:"not null;default:false"`
	AssignedTo        string    `gorm:"type:varchar(100)"`
	LastSyncedAt      time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts the persistence model to a domain TaskItem
func (m *TaskModel) ToDomain() *crm.TaskItem {
	return &crm.TaskItem{
		BaseEntity:        m.BaseModel.ToDomain(),
		LocationID:        m.LocationID,
		ExternalID:        m.ExternalID,
		ContactID:         m.ContactID,
		ContactExternalID: m.ContactExternalID,
		Title:             m.Title,
		Body:              m.Body,
		DueDate:           m.DueDate,
		Completed:         m.Completed,
		AssignedTo:        m.AssignedTo,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain TaskItem
func (m *TaskModel) FromDomain(t *crm.TaskItem) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.LocationID = t.LocationID
	m.ExternalID = t.ExternalID
	m.ContactID = t.ContactID
	m.ContactExternalID = t.ContactExternalID
	m.Title = t.Title
	m.Body = t.Body
	m.DueDate = t.DueDate
	m.Completed = t.Completed
	m.AssignedTo = t.AssignedTo
	m.LastSyncedAt = t.LastSyncedAt
}

// ProjectModel is the persistence model for the Project domain entity
type ProjectModel struct {
	BaseModel
	LocationID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_projects_location_external,priority:1"`
	ExternalID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_projects_location_external,priority:2"`
	ContactID         *uuid.UUID      `gorm:"type:uuid;index"`
	ContactExternalID string          `gorm:"type:varchar(100)"`
	Title             string          `gorm:"type:varchar(500)"`
	Status            string          `gorm:"type:varchar(20);not null;default:'open'"`
	PipelineID        string          `gorm:"type:varchar(100)"`
	PipelineStageID   string          `gorm:"type:varchar(100)"`
	MonetaryValue     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	AssignedTo        string          `gorm:"type:varchar(100)"`
	CustomFieldsJSON  string          `gorm:"type:jsonb;column:custom_fields"`
	LastSyncedAt      time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project
func (m *ProjectModel) ToDomain() *crm.Project {
	p := &crm.Project{
		BaseEntity:        m.BaseModel.ToDomain(),
		LocationID:        m.LocationID,
		ExternalID:        m.ExternalID,
		ContactID:         m.ContactID,
		ContactExternalID: m.ContactExternalID,
		Title:             m.Title,
		Status:            crm.ProjectStatus(m.Status),
		PipelineID:        m.PipelineID,
		PipelineStageID:   m.PipelineStageID,
		MonetaryValue:     m.MonetaryValue,
		AssignedTo:        m.AssignedTo,
		LastSyncedAt:      m.LastSyncedAt,
	}
	if m.CustomFieldsJSON != "" {
		var fields map[string]string
		if err := json.Unmarshal([]byte(m.CustomFieldsJSON), &fields); err == nil {
			p.CustomFieldValues = fields
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Project
func (m *ProjectModel) FromDomain(p *crm.Project) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.LocationID = p.LocationID
	m.ExternalID = p.ExternalID
	m.ContactID = p.ContactID
	m.ContactExternalID = p.ContactExternalID
	m.Title = p.Title
	m.Status = string(p.Status)
	m.PipelineID = p.PipelineID
	m.PipelineStageID = p.PipelineStageID
	m.MonetaryValue = p.MonetaryValue
	m.AssignedTo = p.AssignedTo
	m.LastSyncedAt = p.LastSyncedAt

	if len(p.CustomFieldValues) > 0 {
		if jsonBytes, err := json.Marshal(p.CustomFieldValues); err == nil {
			m.CustomFieldsJSON = string(jsonBytes)
		}
	} else {
		m.CustomFieldsJSON = "{}"
	}
}

// AppointmentModel is the persistence model for the Appointment domain entity
type AppointmentModel struct {
	BaseModel
	LocationID        string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_appointments_location_external,priority:1"`
	ExternalID        string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_appointments_location_external,priority:2"`
	ContactID         *uuid.UUID `gorm:"type:uuid;index"`
	ContactExternalID string     `gorm:"type:varchar(100)"`
	CalendarID        string     `gorm:"type:varchar(100);index"`
	Title             string     `gorm:"type:varchar(500)"`
	Notes             string     `gorm:"type:text"`
	Status            string     `gorm:"type:varchar(20);not null;default:'scheduled'"`
	StartTime         time.Time  `gorm:"index"`
	EndTime           time.Time
	AssignedUserID    string    `gorm:"type:varchar(100)"`
	LastSyncedAt      time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (AppointmentModel) TableName() string {
	return "appointments"
}

// ToDomain converts the persistence model to a domain Appointment
func (m *AppointmentModel) ToDomain() *crm.Appointment {
	return &crm.Appointment{
		BaseEntity:        m.BaseModel.ToDomain(),
		LocationID:        m.LocationID,
		ExternalID:        m.ExternalID,
		ContactID:         m.ContactID,
		ContactExternalID: m.ContactExternalID,
		CalendarID:        m.CalendarID,
		Title:             m.Title,
		Notes:             m.Notes,
		Status:            crm.AppointmentStatus(m.Status),
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		AssignedUserID:    m.AssignedUserID,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Appointment
func (m *AppointmentModel) FromDomain(a *crm.Appointment) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.LocationID = a.LocationID
	m.ExternalID = a.ExternalID
	m.ContactID = a.ContactID
	m.ContactExternalID = a.ContactExternalID
	m.CalendarID = a.CalendarID
	m.Title = a.Title
	m.Notes = a.Notes
	m.Status = string(a.Status)
	m.StartTime = a.StartTime
	m.EndTime = a.EndTime
	m.AssignedUserID = a.AssignedUserID
	m.LastSyncedAt = a.LastSyncedAt
}

// ConversationModel is the persistence model for the Conversation domain entity
type ConversationModel struct {
	BaseModel
	LocationID           string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_conversations_location_external,priority:1"`
	ExternalID           string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_conversations_location_external,priority:2"`
	ContactID            *uuid.UUID `gorm:"type:uuid;index"`
	ContactExternalID    string     `gorm:"type:varchar(100)"`
	Type                 string     `gorm:"type:varchar(50)"`
	UnreadCount          int        `gorm:"not null;default:0"`
	LastMessageBody      string     `gorm:"type:text"`
	LastMessageDirection string     `gorm:"type:varchar(20)"`
	LastMessageAt        *time.Time `gorm:"index"`
	LastSyncedAt         time.Time  `gorm:"index"`
}

// TableName returns the table name for GORM
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts the persistence model to a domain Conversation
func (m *ConversationModel) ToDomain() *crm.Conversation {
	return &crm.Conversation{
		BaseEntity:           m.BaseModel.ToDomain(),
		LocationID:           m.LocationID,
		ExternalID:           m.ExternalID,
		ContactID:            m.ContactID,
		ContactExternalID:    m.ContactExternalID,
		Type:                 m.Type,
		UnreadCount:          m.UnreadCount,
		LastMessageBody:      m.LastMessageBody,
		LastMessageDirection: m.LastMessageDirection,
		LastMessageAt:        m.LastMessageAt,
		LastSyncedAt:         m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Conversation
func (m *ConversationModel) FromDomain(c *crm.Conversation) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.LocationID = c.LocationID
	m.ExternalID = c.ExternalID
	m.ContactID = c.ContactID
	m.ContactExternalID = c.ContactExternalID
	m.Type = c.Type
	m.UnreadCount = c.UnreadCount
	m.LastMessageBody = c.LastMessageBody
	m.LastMessageDirection = c.LastMessageDirection
	m.LastMessageAt = c.LastMessageAt
	m.LastSyncedAt = c.LastSyncedAt
}

// MessageModel is the persistence model for the Message domain entity
type MessageModel struct {
	BaseModel
	LocationID     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_messages_location_external,priority:1"`
	ExternalID     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_messages_location_external,priority:2"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Direction      string    `gorm:"type:varchar(20)"`
	MessageType    string    `gorm:"type:varchar(50)"`
	Body           string    `gorm:"type:text"`
	SentAt         time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message
func (m *MessageModel) ToDomain() *crm.Message {
	return &crm.Message{
		BaseEntity:     m.BaseModel.ToDomain(),
		LocationID:     m.LocationID,
		ExternalID:     m.ExternalID,
		ConversationID: m.ConversationID,
		Direction:      m.Direction,
		MessageType:    m.MessageType,
		Body:           m.Body,
		SentAt:         m.SentAt,
	}
}

// FromDomain populates the persistence model from a domain Message
func (m *MessageModel) FromDomain(msg *crm.Message) {
	m.FromDomainBaseEntity(msg.BaseEntity)
	m.LocationID = msg.LocationID
	m.ExternalID = msg.ExternalID
	m.ConversationID = msg.ConversationID
	m.Direction = msg.Direction
	m.MessageType = msg.MessageType
	m.Body = msg.Body
	m.SentAt = msg.SentAt
}

// CustomFieldModel is the persistence model for CustomFieldMapping
type CustomFieldModel struct {
	BaseModel
	LocationID   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_custom_fields_location_external,priority:1"`
	ExternalID   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_custom_fields_location_external,priority:2"`
	Name         string    `gorm:"type:varchar(255)"`
	FieldKey     string    `gorm:"type:varchar(255);index"`
	DataType     string    `gorm:"type:varchar(50)"`
	Model        string    `gorm:"type:varchar(20);not null;default:'contact'"`
	LastSyncedAt time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (CustomFieldModel) TableName() string {
	return "custom_field_mappings"
}

// ToDomain converts the persistence model to a domain CustomFieldMapping
func (m *CustomFieldModel) ToDomain() *crm.CustomFieldMapping {
	return &crm.CustomFieldMapping{
		BaseEntity:   m.BaseModel.ToDomain(),
		LocationID:   m.LocationID,
		ExternalID:   m.ExternalID,
		Name:         m.Name,
		FieldKey:     m.FieldKey,
		DataType:     m.DataType,
		Model:        m.Model,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain CustomFieldMapping
func (m *CustomFieldModel) FromDomain(f *crm.CustomFieldMapping) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.LocationID = f.LocationID
	m.ExternalID = f.ExternalID
	m.Name = f.Name
	m.FieldKey = f.FieldKey
	m.DataType = f.DataType
	m.Model = f.Model
	m.LastSyncedAt = f.LastSyncedAt
}

// InvoiceModel is the persistence model for the Invoice domain entity
type InvoiceModel struct {
	BaseModel
	LocationID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_invoices_location_external,priority:1"`
	ExternalID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_invoices_location_external,priority:2"`
	ContactID         *uuid.UUID      `gorm:"type:uuid;index"`
	ContactExternalID string          `gorm:"type:varchar(100)"`
	InvoiceNumber     string          `gorm:"type:varchar(100)"`
	Status            string          `gorm:"type:varchar(20);not null;default:'draft'"`
	Currency          string          `gorm:"type:varchar(10)"`
	Total             decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	AmountDue         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	IssueDate         *time.Time
	DueDate           *time.Time
	LastSyncedAt      time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *crm.Invoice {
	return &crm.Invoice{
		BaseEntity:        m.BaseModel.ToDomain(),
		LocationID:        m.LocationID,
		ExternalID:        m.ExternalID,
		ContactID:         m.ContactID,
		ContactExternalID: m.ContactExternalID,
		InvoiceNumber:     m.InvoiceNumber,
		Status:            crm.InvoiceStatus(m.Status),
		Currency:          m.Currency,
		Total:             m.Total,
		AmountDue:         m.AmountDue,
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *crm.Invoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.LocationID = inv.LocationID
	m.ExternalID = inv.ExternalID
	m.ContactID = inv.ContactID
	m.ContactExternalID = inv.ContactExternalID
	m.InvoiceNumber = inv.InvoiceNumber
	m.Status = string(inv.Status)
	m.Currency = inv.Currency
	m.Total = inv.Total
	m.AmountDue = inv.AmountDue
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.LastSyncedAt = inv.LastSyncedAt
}
