package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/clinicbook/clinic-booking/internal/appointments"
)

func sampleAppointments() []*appointments.Appointment {
	return []*appointments.Appointment{
		{
			PatientName: "Ayşe Yılmaz", PatientEmail: "ayse@example.com", PatientPhone: "555-0101",
			AppointmentDate: "2025-06-02", AppointmentTime: "09:30", Status: appointments.StatusConfirmed,
			Notes: "first visit",
		},
		{
			PatientName: "John Doe", PatientEmail: "john@example.com", PatientPhone: "555-0102",
			AppointmentDate: "2025-06-03", AppointmentTime: "14:00", Status: appointments.StatusCancelled,
		},
	}
}

func TestRowsFrom(t *testing.T) {
	rows := RowsFrom(append(sampleAppointments(), nil))
	require.Len(t, rows, 2)
	assert.Equal(t, Row{
		PatientName: "Ayşe Yılmaz", Email: "ayse@example.com", Phone: "555-0101",
		Date: "02.06.2025", Time: "09:30", Status: "Confirmed", Notes: "first visit",
	}, rows[0])
	assert.Equal(t, "Cancelled", rows[1].Status)
	assert.Equal(t, "Pending", StatusLabel(appointments.StatusPending))
	assert.Equal(t, "archived", StatusLabel("archived"))
}

func TestExcel(t *testing.T) {
	data, err := Excel(RowsFrom(sampleAppointments()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"Ayşe Yılmaz", "ayse@example.com", "555-0101", "02.06.2025", "09:30", "Confirmed", "first visit"}, rows[1])
	assert.Equal(t, "John Doe", rows[2][0])
}

func TestExcelEmpty(t *testing.T) {
	data, err := Excel(nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPDF(t *testing.T) {
	data, err := PDF("Appointment List", RowsFrom(sampleAppointments()))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	empty, err := PDF("Appointment List", nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF-")))
}
