// Package export renders appointment lists as Excel workbooks and PDF reports.
package export

import (
	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/internal/calendar"
)

// Row is one appointment flattened for a report.
type Row struct {
	PatientName string
	Email       string
	Phone       string
	Date        string
	Time        string
	Status      string
	Notes       string
}

var headers = []string{"Patient Name", "Email", "Phone", "Date", "Time", "Status", "Notes"}

// StatusLabel returns the human label for a status.
func StatusLabel(status appointments.Status) string {
	switch status {
	case appointments.StatusPending:
		return "Pending"
	case appointments.StatusConfirmed:
		return "Confirmed"
	case appointments.StatusCancelled:
		return "Cancelled"
	default:
		return string(status)
	}
}

// RowsFrom converts appointments into report rows, preserving order.
func RowsFrom(list []*appointments.Appointment) []Row {
	rows := make([]Row, 0, len(list))
	for _, appt := range list {
		if appt == nil {
			continue
		}
		rows = append(rows, Row{
			PatientName: appt.PatientName,
			Email:       appt.PatientEmail,
			Phone:       appt.PatientPhone,
			Date:        calendar.DisplayDate(appt.AppointmentDate),
			Time:        appt.AppointmentTime,
			Status:      StatusLabel(appt.Status),
			Notes:       appt.Notes,
		})
	}
	return rows
}

func (r Row) values() []string {
	return []string{r.PatientName, r.Email, r.Phone, r.Date, r.Time, r.Status, r.Notes}
}
