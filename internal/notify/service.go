package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/internal/calendar"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// AppointmentNotifier emails patients about changes to their appointments.
type AppointmentNotifier struct {
	email      EmailSender
	clinicName string
	logger     *logging.Logger
}

// NewAppointmentNotifier creates a notifier. clinicName signs every message.
func NewAppointmentNotifier(email EmailSender, clinicName string, logger *logging.Logger) *AppointmentNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{email: email, clinicName: clinicName, logger: logger}
}

type messageTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[appointments.Event]messageTemplate{
	appointments.EventCreated: {
		subject: "Your appointment is booked",
		body: template.Must(template.New("created").Parse(`Dear {{.PatientName}},

Your appointment has been booked.

Date: {{.Date}}
Time: {{.Time}}

Use this code to look up your appointment: {{.Code}}

Kind regards,
{{.ClinicName}}
`)),
	},
	appointments.EventUpdated: {
		subject: "Your appointment has been updated",
		body: template.Must(template.New("updated").Parse(`Dear {{.PatientName}},

Your appointment has been updated.

New date: {{.Date}}
New time: {{.Time}}

Use this code to look up your appointment: {{.Code}}

Kind regards,
{{.ClinicName}}
`)),
	},
	appointments.EventCancelled: {
		subject: "Your appointment has been cancelled",
		body: template.Must(template.New("cancelled").Parse(`Dear {{.PatientName}},

Your appointment has been cancelled.

Date: {{.Date}}
Time: {{.Time}}

You are welcome to book a new appointment on our website.

Kind regards,
{{.ClinicName}}
`)),
	},
}

type templateData struct {
	PatientName string
	Date        string
	Time        string
	Code        string
	ClinicName  string
}

// Notify renders and sends the email for event.
func (n *AppointmentNotifier) Notify(ctx context.Context, appt *appointments.Appointment, event appointments.Event) error {
	if n.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	msg, err := n.Render(appt, event)
	if err != nil {
		return err
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Debug("appointment email sent", "id", appt.ID, "event", event)
	return nil
}

// Render builds the message for event without sending it.
func (n *AppointmentNotifier) Render(appt *appointments.Appointment, event appointments.Event) (EmailMessage, error) {
	tmpl, ok := templates[event]
	if !ok {
		return EmailMessage{}, fmt.Errorf("notify: unknown appointment event %q", event)
	}
	if strings.TrimSpace(appt.PatientEmail) == "" {
		return EmailMessage{}, fmt.Errorf("notify: appointment %s has no email address", appt.ID)
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, templateData{
		PatientName: appt.PatientName,
		Date:        calendar.DisplayDate(appt.AppointmentDate),
		Time:        appt.AppointmentTime,
		Code:        appt.Code,
		ClinicName:  n.clinicName,
	}); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render %s email: %w", event, err)
	}

	return EmailMessage{
		To:      appt.PatientEmail,
		ToName:  appt.PatientName,
		Subject: tmpl.subject,
		Body:    body.String(),
	}, nil
}

var _ appointments.Notifier = (*AppointmentNotifier)(nil)
