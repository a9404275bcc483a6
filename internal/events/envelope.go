// Package events publishes versioned appointment change events to downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinic-booking/internal/appointments"
)

// Envelope is the message body on the change queue. Payload holds the versioned event.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	Aggregate       string          `json:"aggregate"`
	TimestampMicros int64           `json:"timestamp"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}

// AppointmentChangedV1 describes one committed appointment mutation.
// It carries no patient contact details.
type AppointmentChangedV1 struct {
	Change          string    `json:"change"`
	AppointmentID   string    `json:"appointment_id"`
	Code            string    `json:"code"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventType is e.g. "appointment.cancelled.v1".
func (e AppointmentChangedV1) EventType() string {
	return "appointment." + e.Change + ".v1"
}

var errMissingAppointment = errors.New("events: appointment with an id is required")

// AppointmentEnvelope wraps the change to appt, keyed by the appointment id and correlated
// by its public code, stamped with occurredAt.
func AppointmentEnvelope(appt *appointments.Appointment, change appointments.Event, occurredAt time.Time) (Envelope, error) {
	if appt == nil || appt.ID == "" {
		return Envelope{}, errMissingAppointment
	}
	if change == "" {
		return Envelope{}, fmt.Errorf("events: change type missing for appointment %s", appt.ID)
	}
	evt := AppointmentChangedV1{
		Change:          string(change),
		AppointmentID:   appt.ID,
		Code:            appt.Code,
		AppointmentDate: appt.AppointmentDate,
		AppointmentTime: appt.AppointmentTime,
		Status:          string(appt.Status),
		UpdatedAt:       appt.UpdatedAt.UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal appointment change: %w", err)
	}
	return Envelope{
		EventID:         uuid.New(),
		EventType:       evt.EventType(),
		Aggregate:       "appointment:" + appt.ID,
		TimestampMicros: occurredAt.UTC().UnixMicro(),
		CorrelationID:   appt.Code,
		Payload:         payload,
	}, nil
}
