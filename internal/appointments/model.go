// Package appointments implements patient booking, lookup and the admin appointment workflow.
package appointments

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an appointment does not exist.
	ErrNotFound = errors.New("appointment not found")
	// ErrCodeTaken is returned by repositories when the public code is already in use.
	ErrCodeTaken = errors.New("appointment code already in use")
	// ErrSlotTaken is returned by repositories when another active appointment holds the slot.
	ErrSlotTaken = errors.New("appointment slot already taken")
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether an appointment in this status holds its slot.
func (s Status) Active() bool { return s != StatusCancelled }

// Appointment is a patient's claim on one slot.
type Appointment struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	PatientName     string    `json:"patientName"`
	PatientEmail    string    `json:"patientEmail"`
	PatientPhone    string    `json:"patientPhone"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Clone returns a copy safe to hand to callers.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// CreateRequest is the public booking payload.
type CreateRequest struct {
	PatientName     string `json:"patientName"`
	PatientEmail    string `json:"patientEmail"`
	PatientPhone    string `json:"patientPhone"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Notes           string `json:"notes,omitempty"`
}

// UpdateRequest is an admin partial update; nil fields are left unchanged.
type UpdateRequest struct {
	PatientName     *string `json:"patientName,omitempty"`
	PatientEmail    *string `json:"patientEmail,omitempty"`
	PatientPhone    *string `json:"patientPhone,omitempty"`
	AppointmentDate *string `json:"appointmentDate,omitempty"`
	AppointmentTime *string `json:"appointmentTime,omitempty"`
	Status          *Status `json:"status,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// SortOrder orders list results by date and time.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	// PatientName matches as a case-insensitive substring.
	PatientName string
	// StartDate and EndDate are inclusive YYYY-MM-DD bounds.
	StartDate string
	EndDate   string
	Status    Status
	Sort      SortOrder
}

// Matches reports whether a satisfies f.
func (f ListFilter) Matches(a *Appointment) bool {
	if f.PatientName != "" && !containsFold(a.PatientName, f.PatientName) {
		return false
	}
	if f.StartDate != "" && a.AppointmentDate < f.StartDate {
		return false
	}
	if f.EndDate != "" && a.AppointmentDate > f.EndDate {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
