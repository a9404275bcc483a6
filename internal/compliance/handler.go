package compliance

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/clinicbook/clinic-booking/internal/calendar"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	audit  *AuditService
	logger *logging.Logger
}

// NewHandler creates an audit handler. A disabled service yields empty results.
func NewHandler(audit *AuditService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{audit: audit, logger: logger}
}

// ListEvents GET /api/admin/audit-events?entityType=&entityId=&since=&limit=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respond.Error(w, h.logger, err, "invalid audit filter")
		return
	}
	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		respond.Error(w, h.logger, err, "failed to load audit events")
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}
	respond.OK(w, http.StatusOK, events, "")
}

func filterFromQuery(r *http.Request) (AuditFilter, error) {
	q := r.URL.Query()
	filter := AuditFilter{
		EntityType: strings.TrimSpace(q.Get("entityType")),
		EntityID:   strings.TrimSpace(q.Get("entityId")),
	}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			day, dayErr := calendar.ParseDate(raw, time.UTC)
			if dayErr != nil {
				return AuditFilter{}, apperr.Validation("since must be RFC3339 or YYYY-MM-DD", "since")
			}
			since = day
		}
		filter.Since = since
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return AuditFilter{}, apperr.Validation("limit must be a positive integer", "limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}
