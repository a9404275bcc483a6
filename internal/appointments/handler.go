package appointments

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Availability answers the public slot queries.
type Availability interface {
	AvailableSlots(ctx context.Context, date string) ([]string, error)
	OccupiedTimes(ctx context.Context, date string) ([]string, error)
}

// PublicHandler serves the unauthenticated booking API.
type PublicHandler struct {
	service      *Service
	availability Availability
	logger       *logging.Logger
}

func NewPublicHandler(service *Service, availability Availability, logger *logging.Logger) *PublicHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PublicHandler{service: service, availability: availability, logger: logger}
}

// Register mounts the public routes; createMiddleware wraps only the booking endpoint.
func (h *PublicHandler) Register(r chi.Router, createMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/available-times/{date}", h.AvailableTimes)
	r.Get("/occupied", h.Occupied)
	r.With(createMiddleware...).Post("/", h.Create)
	r.Get("/{code}", h.GetByCode)
}

type availableTimesResponse struct {
	AvailableSlots []string `json:"availableSlots"`
}

type occupiedResponse struct {
	Times []string `json:"times"`
}

// AvailableTimes GET /api/appointments/available-times/{date}
func (h *PublicHandler) AvailableTimes(w http.ResponseWriter, r *http.Request) {
	slots, err := h.availability.AvailableSlots(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load available times")
		return
	}
	respond.JSON(w, http.StatusOK, availableTimesResponse{AvailableSlots: slots})
}

// Occupied GET /api/appointments/occupied?date=YYYY-MM-DD
func (h *PublicHandler) Occupied(w http.ResponseWriter, r *http.Request) {
	times, err := h.availability.OccupiedTimes(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load occupied times")
		return
	}
	if times == nil {
		times = []string{}
	}
	respond.JSON(w, http.StatusOK, occupiedResponse{Times: times})
}

// Create POST /api/appointments
func (h *PublicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err, "failed to create appointment")
		return
	}
	result, err := h.service.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to create appointment")
		return
	}
	respond.JSON(w, http.StatusCreated, respond.Envelope{
		Success:    true,
		Data:       result.Appointment,
		EmailError: result.EmailErrorMessage(),
	})
}

// GetByCode GET /api/appointments/{code}
func (h *PublicHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load appointment")
		return
	}
	respond.OK(w, http.StatusOK, appt, "")
}

// AdminHandler serves appointment administration.
type AdminHandler struct {
	service *Service
	audit   *compliance.AuditService
	logger  *logging.Logger
}

func NewAdminHandler(service *Service, audit *compliance.AuditService, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{service: service, audit: audit, logger: logger}
}

// Register mounts the admin routes under /api/admin/appointments.
func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
	r.Delete("/{id}/permanent", h.Delete)
}

// List GET /api/admin/appointments
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), ListFilter{Sort: SortAscending})
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load appointments")
		return
	}
	respond.OK(w, http.StatusOK, list, "")
}

// Search GET /api/admin/appointments/search
func (h *AdminHandler) Search(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), FilterFromQuery(r, SortDescending))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to search appointments")
		return
	}
	respond.OK(w, http.StatusOK, list, "")
}

// Stats GET /api/admin/appointments/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := ParseStatsFilter(q.Get("year"), q.Get("month"))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load stats")
		return
	}
	stats, err := h.service.Stats(r.Context(), filter)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load stats")
		return
	}
	respond.OK(w, http.StatusOK, stats, "")
}

// Update PUT /api/admin/appointments/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err, "failed to update appointment")
		return
	}
	result, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to update appointment")
		return
	}
	if len(result.Changed) > 0 {
		h.audit.Record(r.Context(), compliance.ActionAppointmentUpdated, "appointment", id, result.Changed, nil)
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Success:    true,
		Data:       result.Appointment,
		EmailError: result.EmailErrorMessage(),
	})
}

// Cancel DELETE /api/admin/appointments/{id}
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to cancel appointment")
		return
	}
	if len(result.Changed) > 0 {
		h.audit.Record(r.Context(), compliance.ActionAppointmentCancelled, "appointment", id, result.Changed, nil)
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Success:    true,
		Data:       result.Appointment,
		Message:    "appointment cancelled",
		EmailError: result.EmailErrorMessage(),
	})
}

// Delete DELETE /api/admin/appointments/{id}/permanent
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.service.Delete(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to delete appointment")
		return
	}
	h.audit.Record(r.Context(), compliance.ActionAppointmentDeleted, "appointment", id, nil, map[string]string{
		"code": appt.Code,
		"date": appt.AppointmentDate,
		"time": appt.AppointmentTime,
	})
	respond.OK(w, http.StatusOK, nil, "appointment permanently deleted")
}

// FilterFromQuery reads patientName, startDate, endDate, status and sort from the query string.
func FilterFromQuery(r *http.Request, defaultSort SortOrder) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{
		PatientName: strings.TrimSpace(q.Get("patientName")),
		StartDate:   strings.TrimSpace(q.Get("startDate")),
		EndDate:     strings.TrimSpace(q.Get("endDate")),
		Status:      Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Sort:        defaultSort,
	}
	switch SortOrder(strings.ToLower(q.Get("sort"))) {
	case SortAscending:
		filter.Sort = SortAscending
	case SortDescending:
		filter.Sort = SortDescending
	}
	return filter
}
