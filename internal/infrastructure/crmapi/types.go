package crmapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lpai/backend/internal/domain/crm"
)

// Wire types for the external CRM REST API. Each carries only the fields
// the sync pipeline consumes; unknown fields are ignored on decode.

type tokenResponse struct {
	AccessToken       string   `json:"access_token"`
	RefreshToken      string   `json:"refresh_token"`
	ExpiresIn         int      `json:"expires_in"`
	TokenType         string   `json:"token_type"`
	UserType          string   `json:"userType"`
	LocationID        string   `json:"locationId"`
	CompanyID         string   `json:"companyId"`
	ApprovedLocations []string `json:"approvedLocations"`
}

func (r *tokenResponse) toDomain() *crm.TokenResponse {
	return &crm.TokenResponse{
		AccessToken:       r.AccessToken,
		RefreshToken:      r.RefreshToken,
		ExpiresIn:         r.ExpiresIn,
		TokenType:         r.TokenType,
		UserType:          r.UserType,
		LocationID:        r.LocationID,
		CompanyID:         r.CompanyID,
		ApprovedLocations: r.ApprovedLocations,
	}
}

type locationEnvelope struct {
	Location locationDTO `json:"location"`
}

type locationDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Timezone  string `json:"timezone"`
}

func (d *locationDTO) toDomain() *crm.LocationProfile {
	return &crm.LocationProfile{
		ExternalID: d.ID,
		CompanyID:  d.CompanyID,
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Timezone:   d.Timezone,
	}
}

type pipelinesEnvelope struct {
	Pipelines []pipelineDTO `json:"pipelines"`
}

type pipelineDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Stages []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Position int    `json:"position"`
	} `json:"stages"`
}

func (d *pipelineDTO) toDomain() crm.Pipeline {
	p := crm.Pipeline{ExternalID: d.ID, Name: d.Name}
	for _, s := range d.Stages {
		p.Stages = append(p.Stages, crm.PipelineStage{
			ExternalID: s.ID,
			Name:       s.Name,
			Position:   s.Position,
		})
	}
	return p
}

type calendarsEnvelope struct {
	Calendars []calendarDTO `json:"calendars"`
}

type calendarDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

func (d *calendarDTO) toDomain() crm.Calendar {
	return crm.Calendar{
		ExternalID:  d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
	}
}

type usersEnvelope struct {
	Users []userDTO `json:"users"`
}

type userDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

func (d *userDTO) toDomain() crm.CRMUser {
	name := d.Name
	if name == "" {
		name = d.FirstName + " " + d.LastName
	}
	return crm.CRMUser{
		ExternalID: d.ID,
		Name:       name,
		Email:      d.Email,
		Phone:      d.Phone,
		Role:       d.Role,
	}
}

type customFieldsEnvelope struct {
	CustomFields []customFieldDTO `json:"customFields"`
}

type customFieldDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FieldKey string `json:"fieldKey"`
	DataType string `json:"dataType"`
	Model    string `json:"model"`
}

func (d *customFieldDTO) toDomain() crm.CustomFieldMapping {
	return crm.CustomFieldMapping{
		ExternalID: d.ID,
		Name:       d.Name,
		FieldKey:   d.FieldKey,
		DataType:   d.DataType,
		Model:      d.Model,
	}
}

type customValuesEnvelope struct {
	CustomValues []customValueDTO `json:"customValues"`
}

type customValueDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (d *customValueDTO) toDomain() crm.CustomValue {
	return crm.CustomValue{ExternalID: d.ID, Name: d.Name, Value: d.Value}
}

type tagsEnvelope struct {
	Tags []tagDTO `json:"tags"`
}

type tagDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (d *tagDTO) toDomain() crm.Tag {
	return crm.Tag{ExternalID: d.ID, Name: d.Name}
}

type listMeta struct {
	Total int `json:"total"`
}

type contactsEnvelope struct {
	Contacts []contactDTO `json:"contacts"`
	Meta     listMeta     `json:"meta"`
}

type contactDTO struct {
	ID           string           `json:"id"`
	LocationID   string           `json:"locationId"`
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone"`
	Address      string           `json:"address1"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	PostalCode   string           `json:"postalCode"`
	Source       string           `json:"source"`
	Tags         []string         `json:"tags"`
	CustomFields []customFieldsKV `json:"customFields"`
}

type customFieldsKV struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

func (d *contactDTO) toDomain() crm.Contact {
	c := crm.Contact{
		LocationID: d.LocationID,
		ExternalID: d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Email:      d.Email,
		Phone:      d.Phone,
		Address:    d.Address,
		City:       d.City,
		State:      d.State,
		PostalCode: d.PostalCode,
		Source:     d.Source,
		Tags:       d.Tags,
	}
	if len(d.CustomFields) > 0 {
		c.CustomFields = make(map[string]string, len(d.CustomFields))
		for _, f := range d.CustomFields {
			c.CustomFields[f.ID] = f.Value
		}
	}
	return c
}

type tasksEnvelope struct {
	Tasks []taskDTO `json:"tasks"`
	Meta  listMeta  `json:"meta"`
}

type taskDTO struct {
	ID         string `json:"id"`
	ContactID  string `json:"contactId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	DueDate    string `json:"dueDate"`
	Completed  bool   `json:"completed"`
	AssignedTo string `json:"assignedTo"`
}

func (d *taskDTO) toDomain() crm.TaskItem {
	return crm.TaskItem{
		ExternalID:        d.ID,
		ContactExternalID: d.ContactID,
		Title:             d.Title,
		Body:              d.Body,
		DueDate:           parseTimePtr(d.DueDate),
		Completed:         d.Completed,
		AssignedTo:        d.AssignedTo,
	}
}

type opportunitiesEnvelope struct {
	Opportunities []opportunityDTO `json:"opportunities"`
	Meta          listMeta         `json:"meta"`
}

type opportunityDTO struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	ContactID       string           `json:"contactId"`
	Status          string           `json:"status"`
	PipelineID      string           `json:"pipelineId"`
	PipelineStageID string           `json:"pipelineStageId"`
	MonetaryValue   float64          `json:"monetaryValue"`
	AssignedTo      string           `json:"assignedTo"`
	CustomFields    []customFieldsKV `json:"customFields"`
}

func (d *opportunityDTO) toDomain() crm.Project {
	p := crm.Project{
		ExternalID:        d.ID,
		ContactExternalID: d.ContactID,
		Title:             d.Name,
		Status:            crm.MapProjectStatus(d.Status),
		PipelineID:        d.PipelineID,
		PipelineStageID:   d.PipelineStageID,
		MonetaryValue:     decimal.NewFromFloat(d.MonetaryValue),
		AssignedTo:        d.AssignedTo,
	}
	if len(d.CustomFields) > 0 {
		p.CustomFieldValues = make(map[string]string, len(d.CustomFields))
		for _, f := range d.CustomFields {
			p.CustomFieldValues[f.ID] = f.Value
		}
	}
	return p
}

type eventsEnvelope struct {
	Events []eventDTO `json:"events"`
	Meta   listMeta   `json:"meta"`
}

type eventDTO struct {
	ID             string `json:"id"`
	ContactID      string `json:"contactId"`
	CalendarID     string `json:"calendarId"`
	Title          string `json:"title"`
	Notes          string `json:"notes"`
	Status         string `json:"appointmentStatus"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	AssignedUserID string `json:"assignedUserId"`
}

func (d *eventDTO) toDomain() crm.Appointment {
	a := crm.Appointment{
		ExternalID:        d.ID,
		ContactExternalID: d.ContactID,
		CalendarID:        d.CalendarID,
		Title:             d.Title,
		Notes:             d.Notes,
		Status:            crm.MapAppointmentStatus(d.Status),
		AssignedUserID:    d.AssignedUserID,
	}
	if t := parseTimePtr(d.StartTime); t != nil {
		a.StartTime = *t
	}
	if t := parseTimePtr(d.EndTime); t != nil {
		a.EndTime = *t
	}
	return a
}

type conversationsEnvelope struct {
	Conversations []conversationDTO `json:"conversations"`
	Total         int               `json:"total"`
}

type conversationDTO struct {
	ID                   string `json:"id"`
	ContactID            string `json:"contactId"`
	Type                 string `json:"type"`
	UnreadCount          int    `json:"unreadCount"`
	LastMessageBody      string `json:"lastMessageBody"`
	LastMessageDirection string `json:"lastMessageDirection"`
	LastMessageDate      string `json:"lastMessageDate"`
}

func (d *conversationDTO) toDomain() crm.Conversation {
	return crm.Conversation{
		ExternalID:           d.ID,
		ContactExternalID:    d.ContactID,
		Type:                 d.Type,
		UnreadCount:          d.UnreadCount,
		LastMessageBody:      d.LastMessageBody,
		LastMessageDirection: d.LastMessageDirection,
		LastMessageAt:        parseTimePtr(d.LastMessageDate),
	}
}

type messagesEnvelope struct {
	Messages struct {
		Messages []messageDTO `json:"messages"`
		NextPage bool         `json:"nextPage"`
	} `json:"messages"`
}

type messageDTO struct {
	ID          string `json:"id"`
	Direction   string `json:"direction"`
	MessageType string `json:"messageType"`
	Body        string `json:"body"`
	DateAdded   string `json:"dateAdded"`
}

func (d *messageDTO) toDomain() crm.Message {
	m := crm.Message{
		ExternalID:  d.ID,
		Direction:   d.Direction,
		MessageType: d.MessageType,
		Body:        d.Body,
	}
	if t := parseTimePtr(d.DateAdded); t != nil {
		m.SentAt = *t
	}
	return m
}

type invoicesEnvelope struct {
	Invoices []invoiceDTO `json:"invoices"`
	Total    int          `json:"total"`
}

type invoiceDTO struct {
	ID            string  `json:"_id"`
	ContactID     string  `json:"contactId"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Status        string  `json:"status"`
	Currency      string  `json:"currency"`
	Total         float64 `json:"total"`
	AmountDue     float64 `json:"amountDue"`
	IssueDate     string  `json:"issueDate"`
	DueDate       string  `json:"dueDate"`
}

func (d *invoiceDTO) toDomain() crm.Invoice {
	return crm.Invoice{
		ExternalID:        d.ID,
		ContactExternalID: d.ContactID,
		InvoiceNumber:     d.InvoiceNumber,
		Status:            crm.MapInvoiceStatus(d.Status),
		Currency:          d.Currency,
		Total:             decimal.NewFromFloat(d.Total),
		AmountDue:         decimal.NewFromFloat(d.AmountDue),
		IssueDate:         parseTimePtr(d.IssueDate),
		DueDate:           parseTimePtr(d.DueDate),
	}
}

// parseTimePtr parses the timestamp formats the CRM emits: RFC3339 with or
// without fractional seconds, and bare dates. Returns nil when empty or
// unparseable.
func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
