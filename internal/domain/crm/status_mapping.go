package crm

import "strings"

// Status mapping tables are closed: every defined external status maps to
// exactly one local state, and any value outside the table maps to the
// documented default instead of raising.

// ---------------------------------------------------------------------------
// Project (Opportunity) Status
// ---------------------------------------------------------------------------

// ProjectStatus is the local opportunity status
type ProjectStatus string

const (
	// ProjectStatusOpen indicates an active opportunity
	ProjectStatusOpen ProjectStatus = "open"
	// ProjectStatusWon indicates the opportunity was won
	ProjectStatusWon ProjectStatus = "won"
	// ProjectStatusLost indicates the opportunity was lost
	ProjectStatusLost ProjectStatus = "lost"
	// ProjectStatusAbandoned indicates the opportunity was abandoned
	ProjectStatusAbandoned ProjectStatus = "abandoned"
)

// DefaultProjectStatus is applied to unrecognized external statuses
const DefaultProjectStatus = ProjectStatusOpen

// ProjectStatusTable maps external opportunity statuses to local statuses
var ProjectStatusTable = map[string]ProjectStatus{
	"open":      ProjectStatusOpen,
	"won":       ProjectStatusWon,
	"lost":      ProjectStatusLost,
	"abandoned": ProjectStatusAbandoned,
	"deleted":   ProjectStatusAbandoned,
}

// MapProjectStatus maps an external status to a local ProjectStatus
func MapProjectStatus(external string) ProjectStatus {
	if s, ok := ProjectStatusTable[strings.ToLower(external)]; ok {
		return s
	}
	return DefaultProjectStatus
}

// ---------------------------------------------------------------------------
// Appointment Status
// ---------------------------------------------------------------------------

// AppointmentStatus is the local appointment status
type AppointmentStatus string

const (
	// AppointmentStatusScheduled indicates an upcoming appointment
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	// AppointmentStatusCompleted indicates the contact showed
	AppointmentStatusCompleted AppointmentStatus = "completed"
	// AppointmentStatusNoShow indicates the contact did not show
	AppointmentStatusNoShow AppointmentStatus = "no_show"
	// AppointmentStatusCancelled indicates the appointment was cancelled
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// DefaultAppointmentStatus is applied to unrecognized external statuses
const DefaultAppointmentStatus = AppointmentStatusScheduled

// AppointmentStatusTable maps external event statuses to local statuses
var AppointmentStatusTable = map[string]AppointmentStatus{
	"new":       AppointmentStatusScheduled,
	"confirmed": AppointmentStatusScheduled,
	"booked":    AppointmentStatusScheduled,
	"showed":    AppointmentStatusCompleted,
	"noshow":    AppointmentStatusNoShow,
	"cancelled": AppointmentStatusCancelled,
	"invalid":   AppointmentStatusCancelled,
}

// MapAppointmentStatus maps an external status to a local AppointmentStatus
func MapAppointmentStatus(external string) AppointmentStatus {
	if s, ok := AppointmentStatusTable[strings.ToLower(external)]; ok {
		return s
	}
	return DefaultAppointmentStatus
}

// ---------------------------------------------------------------------------
// Invoice Status
// ---------------------------------------------------------------------------

// InvoiceStatus is the local invoice status
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates an unsent invoice
	InvoiceStatusDraft InvoiceStatus = "draft"
	// InvoiceStatusSent indicates the invoice was sent
	InvoiceStatusSent InvoiceStatus = "sent"
	// InvoiceStatusPartiallyPaid indicates a partial payment was received
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	// InvoiceStatusPaid indicates the invoice is fully paid
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusVoid indicates the invoice was voided
	InvoiceStatusVoid InvoiceStatus = "void"
)

// DefaultInvoiceStatus is applied to unrecognized external statuses
const DefaultInvoiceStatus = InvoiceStatusDraft

// InvoiceStatusTable maps external invoice statuses to local statuses
var InvoiceStatusTable = map[string]InvoiceStatus{
	"draft":          InvoiceStatusDraft,
	"sent":           InvoiceStatusSent,
	"viewed":         InvoiceStatusSent,
	"partially_paid": InvoiceStatusPartiallyPaid,
	"paid":           InvoiceStatusPaid,
	"void":           InvoiceStatusVoid,
}

// MapInvoiceStatus maps an external status to a local InvoiceStatus
func MapInvoiceStatus(external string) InvoiceStatus {
	if s, ok := InvoiceStatusTable[strings.ToLower(external)]; ok {
		return s
	}
	return DefaultInvoiceStatus
}
