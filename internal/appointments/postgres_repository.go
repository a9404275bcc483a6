package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinic-booking/internal/database"
)

// Constraint names from migrations/000001_init.up.sql.
const (
	constraintCode       = "appointments_code_key"
	constraintActiveSlot = "appointments_active_slot_idx"
)

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, code, patient_name, patient_email, patient_phone,
	appointment_date, appointment_time, status, COALESCE(notes, ''), created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	stored := appt.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (
			id, code, patient_name, patient_email, patient_phone,
			appointment_date, appointment_time, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		stored.ID,
		stored.Code,
		stored.PatientName,
		stored.PatientEmail,
		stored.PatientPhone,
		stored.AppointmentDate,
		stored.AppointmentTime,
		string(stored.Status),
		stored.Notes,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, mapWriteError("insert", err)
	}
	return stored, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE code = $1`, code)
	return scanOne(row)
}

func (r *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: check code: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.PatientName != "" {
		args = append(args, filter.PatientName)
		clauses = append(clauses, fmt.Sprintf("strpos(lower(patient_name), lower($%d)) > 0", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		clauses = append(clauses, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		clauses = append(clauses, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.Sort == SortDescending {
		query += " ORDER BY appointment_date DESC, appointment_time DESC, created_at"
	} else {
		query += " ORDER BY appointment_date, appointment_time, created_at"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list query failed: %w", err)
	}
	defer rows.Close()

	list := make([]*Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate failed: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) Update(ctx context.Context, appt *Appointment) (*Appointment, error) {
	stored := appt.Clone()
	query := `
		UPDATE appointments SET
			patient_name = $2,
			patient_email = $3,
			patient_phone = $4,
			appointment_date = $5,
			appointment_time = $6,
			status = $7,
			notes = NULLIF($8, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		stored.ID,
		stored.PatientName,
		stored.PatientEmail,
		stored.PatientPhone,
		stored.AppointmentDate,
		stored.AppointmentTime,
		string(stored.Status),
		stored.Notes,
	).Scan(&stored.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteError("update", err)
	}
	return stored, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	appt, err := scanOne(r.db.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING `+appointmentColumns, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("appointments: delete failed: %w", err)
	}
	return appt, err
}

func (r *PostgresRepository) ActiveTimes(ctx context.Context, date, excludeID string) ([]string, error) {
	query := `SELECT appointment_time FROM appointments WHERE appointment_date = $1 AND status <> 'cancelled'`
	args := []any{date}
	if excludeID != "" {
		if _, err := uuid.Parse(excludeID); err == nil {
			query += ` AND id <> $2`
			args = append(args, excludeID)
		}
	}
	query += ` ORDER BY appointment_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: active times query failed: %w", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("appointments: scan active times: %w", err)
	}
	return times, nil
}

func scanOne(row pgx.Row) (*Appointment, error) {
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return appt, err
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.Code,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.PatientPhone,
		&appt.AppointmentDate,
		&appt.AppointmentTime,
		&status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("appointments: scan failed: %w", err)
	}
	appt.Status = Status(status)
	return &appt, nil
}

// mapWriteError turns unique violations into repository sentinels.
func mapWriteError(op string, err error) error {
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case constraintCode:
			return ErrCodeTaken
		case constraintActiveSlot:
			return ErrSlotTaken
		}
	}
	return fmt.Errorf("appointments: %s failed: %w", op, err)
}
