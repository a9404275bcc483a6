package blockedslots

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Handler exposes blocked-slot administration over HTTP.
type Handler struct {
	service *Service
	audit   *compliance.AuditService
	logger  *logging.Logger
}

func NewHandler(service *Service, audit *compliance.AuditService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, audit: audit, logger: logger}
}

// Routes mounts under /api/admin/blocked-slots behind admin auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListByDate)
	r.Post("/", h.Create)
	r.Get("/all", h.ListAll)
	r.Delete("/{id}", h.Delete)
	return r
}

type slotResponse struct {
	Success bool  `json:"success"`
	Slot    *Slot `json:"slot"`
}

type slotsResponse struct {
	Success bool    `json:"success"`
	Slots   []*Slot `json:"slots"`
}

// Create POST /api/admin/blocked-slots
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err, "failed to block slot")
		return
	}
	slot, err := h.service.Block(r.Context(), req)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to block slot")
		return
	}
	h.audit.Record(r.Context(), compliance.ActionSlotBlocked, "blocked_slot", slot.ID, nil, slot)
	respond.JSON(w, http.StatusOK, slotResponse{Success: true, Slot: slot})
}

// ListByDate GET /api/admin/blocked-slots?date=YYYY-MM-DD
func (h *Handler) ListByDate(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.ListByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load blocked slots")
		return
	}
	respond.JSON(w, http.StatusOK, slotsResponse{Success: true, Slots: slots})
}

// ListAll GET /api/admin/blocked-slots/all
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.ListAll(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load blocked slots")
		return
	}
	respond.JSON(w, http.StatusOK, slotsResponse{Success: true, Slots: slots})
}

// Delete DELETE /api/admin/blocked-slots/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Unblock(r.Context(), id); err != nil {
		respond.Error(w, h.logger, err, "failed to delete blocked slot")
		return
	}
	h.audit.Record(r.Context(), compliance.ActionSlotUnblocked, "blocked_slot", id, nil, nil)
	respond.JSON(w, http.StatusOK, respond.Envelope{Success: true, Message: "blocked slot removed"})
}
