package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const PDFContentType = "application/pdf"

// PDF renders rows as a numbered appointment listing.
func PDF(title string, rows []Row) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Core fonts are cp1252; translate so accented patient names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, "No appointments.", "", 1, "L", false, 0, "")
	}

	for i, row := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, fmt.Sprintf("%d. Appointment", i+1), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		line := func(label, value string) {
			pdf.MultiCell(0, 5, tr(label+": "+value), "", "L", false)
		}
		line("Patient", row.PatientName)
		line("Email", row.Email)
		line("Phone", row.Phone)
		line("Date", row.Date)
		line("Time", row.Time)
		line("Status", row.Status)
		if row.Notes != "" {
			line("Notes", row.Notes)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
