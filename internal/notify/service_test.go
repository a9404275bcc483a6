package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinicbook/clinic-booking/internal/appointments"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func testAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:              "appt-1",
		Code:            "482913",
		PatientName:     "Ayse Yilmaz",
		PatientEmail:    "ayse@example.com",
		AppointmentDate: "2025-06-02",
		AppointmentTime: "10:00",
	}
}

func TestNotifyCreated(t *testing.T) {
	sender := &captureSender{}
	n := NewAppointmentNotifier(sender, "Physiotherapy Clinic", nil)

	if err := n.Notify(context.Background(), testAppointment(), appointments.EventCreated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "ayse@example.com" || msg.Subject != "Your appointment is booked" {
		t.Fatalf("unexpected message header %+v", msg)
	}
	for _, want := range []string{"Dear Ayse Yilmaz", "Date: 02.06.2025", "Time: 10:00", "482913", "Physiotherapy Clinic"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestNotifyCancelledOmitsCode(t *testing.T) {
	sender := &captureSender{}
	n := NewAppointmentNotifier(sender, "Clinic", nil)

	if err := n.Notify(context.Background(), testAppointment(), appointments.EventCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sender.sent[0].Body, "482913") {
		t.Error("cancellation email should not include the lookup code")
	}
}

func TestNotifyErrors(t *testing.T) {
	n := NewAppointmentNotifier(&captureSender{err: errors.New("down")}, "Clinic", nil)
	if err := n.Notify(context.Background(), testAppointment(), appointments.EventUpdated); err == nil {
		t.Error("expected sender error to propagate")
	}

	if err := n.Notify(context.Background(), testAppointment(), appointments.Event("rescheduled")); err == nil {
		t.Error("expected unknown event error")
	}

	noEmail := testAppointment()
	noEmail.PatientEmail = ""
	if err := n.Notify(context.Background(), noEmail, appointments.EventCreated); err == nil {
		t.Error("expected error for missing address")
	}

	if err := NewAppointmentNotifier(nil, "Clinic", nil).Notify(context.Background(), testAppointment(), appointments.EventCreated); err == nil {
		t.Error("expected error without sender")
	}
}
