package settings

import (
	"net/http"

	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Handler provides HTTP endpoints for clinic settings.
type Handler struct {
	cache  *Cache
	audit  *compliance.AuditService
	logger *logging.Logger
}

// NewHandler creates a settings handler. audit may be nil.
func NewHandler(cache *Cache, audit *compliance.AuditService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{cache: cache, audit: audit, logger: logger}
}

// GetSettings returns the settings document. The booking page reads it unauthenticated.
// GET /api/admin/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.cache.Get(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load settings")
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

// UpdateSettings merges the request body into the stored settings.
// PUT /api/admin/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := respond.DecodeJSON(r, &patch); err != nil {
		respond.Error(w, h.logger, err, "invalid request body")
		return
	}

	s, changed, err := h.cache.Update(r.Context(), patch)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to save settings")
		return
	}

	if len(changed) > 0 {
		h.audit.Record(r.Context(), compliance.ActionSettingsUpdated, "settings", "clinic", changed, nil)
		h.logger.Info("settings updated", "changed", changed)
	}
	respond.JSON(w, http.StatusOK, s)
}
