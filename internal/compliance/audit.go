// Package compliance keeps an immutable trail of administrative changes to patient bookings.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// AuditAction names an administrative mutation.
type AuditAction string

const (
	ActionAppointmentUpdated   AuditAction = "appointment.updated"
	ActionAppointmentCancelled AuditAction = "appointment.cancelled"
	ActionAppointmentDeleted   AuditAction = "appointment.deleted"
	ActionSlotBlocked          AuditAction = "blocked_slot.created"
	ActionSlotUnblocked        AuditAction = "blocked_slot.deleted"
	ActionSettingsUpdated      AuditAction = "settings.updated"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID            string          `json:"id"`
	Action        AuditAction     `json:"action"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	ChangedFields []string        `json:"changed_fields,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditFilter narrows QueryEvents.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Since      time.Time
	Limit      int
}

// AuditService handles audit logging. A nil db turns every call into a no-op.
type AuditService struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB, logger *logging.Logger) *AuditService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditService{db: db, logger: logger}
}

// Enabled reports whether events are persisted.
func (s *AuditService) Enabled() bool {
	return s != nil && s.db != nil
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if !s.Enabled() {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO admin_audit_events (
			id, action, entity_type, entity_id, changed_fields, actor, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.EntityType,
		event.EntityID,
		pq.Array(event.ChangedFields),
		nullString(event.Actor),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// Record logs an event and swallows failures; the audited change has already committed.
func (s *AuditService) Record(ctx context.Context, action AuditAction, entityType, entityID string, changed []string, details any) {
	if !s.Enabled() {
		return
	}
	var raw json.RawMessage
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			raw = data
		}
	}
	event := AuditEvent{
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		ChangedFields: changed,
		Actor:         ActorFromContext(ctx),
		Details:       raw,
	}
	if err := s.LogEvent(ctx, event); err != nil {
		s.logger.Warn("audit event not recorded", "error", err, "action", action, "entity_id", entityID)
	}
}

// QueryEvents returns audit events, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if !s.Enabled() {
		return nil, nil
	}
	var (
		clauses []string
		args    []any
	)
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		clauses = append(clauses, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		clauses = append(clauses, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, action, entity_type, entity_id, changed_fields, actor, details, created_at FROM admin_audit_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event   AuditEvent
			action  string
			actor   sql.NullString
			details []byte
		)
		if err := rows.Scan(
			&event.ID,
			&action,
			&event.EntityType,
			&event.EntityID,
			pq.Array(&event.ChangedFields),
			&actor,
			&details,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("compliance: scan audit event: %w", err)
		}
		event.Action = AuditAction(action)
		event.Actor = actor.String
		event.Details = details
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: iterate audit events: %w", err)
	}
	return events, nil
}

type actorKey struct{}

// WithActor tags ctx with the identity performing an admin action.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor, if any.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
