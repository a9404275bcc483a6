package export

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/internal/archive"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Lister loads the appointments to export.
type Lister interface {
	List(ctx context.Context, filter appointments.ListFilter) ([]*appointments.Appointment, error)
}

// Archiver keeps a copy of generated files.
type Archiver interface {
	Archive(ctx context.Context, obj archive.Object) (string, error)
}

// Handler serves the admin export endpoints.
type Handler struct {
	lister   Lister
	archiver Archiver
	logger   *logging.Logger
	title    string
}

// NewHandler builds an export handler. archiver may be nil.
func NewHandler(lister Lister, archiver Archiver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{lister: lister, archiver: archiver, logger: logger, title: "Appointment List"}
}

// Register mounts the export routes under /api/admin/appointments.
func (h *Handler) Register(r chi.Router) {
	r.Get("/export/excel", h.Excel)
	r.Get("/export/pdf", h.PDF)
}

// Excel GET /api/admin/appointments/export/excel
func (h *Handler) Excel(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to export appointments to Excel")
		return
	}
	data, err := Excel(rows)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to export appointments to Excel")
		return
	}
	h.send(w, r, "excel", "appointments.xlsx", ExcelContentType, data, len(rows))
}

// PDF GET /api/admin/appointments/export/pdf
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to export appointments to PDF")
		return
	}
	data, err := PDF(h.title, rows)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to export appointments to PDF")
		return
	}
	h.send(w, r, "pdf", "appointments.pdf", PDFContentType, data, len(rows))
}

func (h *Handler) rows(r *http.Request) ([]Row, error) {
	q := r.URL.Query()
	list, err := h.lister.List(r.Context(), appointments.ListFilter{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Sort:      appointments.SortAscending,
	})
	if err != nil {
		return nil, err
	}
	return RowsFrom(list), nil
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, kind, filename, contentType string, data []byte, rows int) {
	if h.archiver != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 15*time.Second)
		_, err := h.archiver.Archive(ctx, archive.Object{
			Kind:        kind,
			Filename:    filename,
			ContentType: contentType,
			Data:        data,
			Rows:        rows,
		})
		cancel()
		if err != nil {
			h.logger.Warn("export archive failed", "error", err, "kind", kind)
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
