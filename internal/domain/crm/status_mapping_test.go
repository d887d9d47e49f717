package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapProjectStatus(t *testing.T) {
	tests := []struct {
		external string
		want     ProjectStatus
	}{
		{"open", ProjectStatusOpen},
		{"won", ProjectStatusWon},
		{"lost", ProjectStatusLost},
		{"abandoned", ProjectStatusAbandoned},
		{"deleted", ProjectStatusAbandoned},
		{"WON", ProjectStatusWon},
		{"something-new", DefaultProjectStatus},
		{"", DefaultProjectStatus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapProjectStatus(tt.external), tt.external)
	}
}

func TestMapAppointmentStatus(t *testing.T) {
	tests := []struct {
		external string
		want     AppointmentStatus
	}{
		{"new", AppointmentStatusScheduled},
		{"confirmed", AppointmentStatusScheduled},
		{"booked", AppointmentStatusScheduled},
		{"showed", AppointmentStatusCompleted},
		{"noshow", AppointmentStatusNoShow},
		{"cancelled", AppointmentStatusCancelled},
		{"invalid", AppointmentStatusCancelled},
		{"Confirmed", AppointmentStatusScheduled},
		{"unheard-of", DefaultAppointmentStatus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapAppointmentStatus(tt.external), tt.external)
	}
}

func TestMapInvoiceStatus(t *testing.T) {
	tests := []struct {
		external string
		want     InvoiceStatus
	}{
		{"draft", InvoiceStatusDraft},
		{"sent", InvoiceStatusSent},
		{"viewed", InvoiceStatusSent},
		{"partially_paid", InvoiceStatusPartiallyPaid},
		{"paid", InvoiceStatusPaid},
		{"void", InvoiceStatusVoid},
		{"PAID", InvoiceStatusPaid},
		{"chargeback", DefaultInvoiceStatus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapInvoiceStatus(tt.external), tt.external)
	}
}
