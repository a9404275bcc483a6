package blockedslots

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinic-booking/internal/database"
)

// PostgresRepository stores blocked slots in the relational database.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("blockedslots: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, slot_date, slot_time, COALESCE(reason, ''), created_at`

func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Slot, error) {
	slot := &Slot{
		ID:     uuid.NewString(),
		Date:   req.Date,
		Time:   req.Time,
		Reason: req.Reason,
	}
	query := `
		INSERT INTO blocked_slots (id, slot_date, slot_time, reason)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, slot.ID, slot.Date, slot.Time, slot.Reason).Scan(&slot.CreatedAt); err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("blockedslots: insert failed: %w", err)
	}
	return slot, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("blockedslots: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByDate(ctx context.Context, date string) ([]*Slot, error) {
	query := `SELECT ` + selectColumns + ` FROM blocked_slots WHERE slot_date = $1 ORDER BY slot_time`
	return r.query(ctx, query, date)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Slot, error) {
	query := `SELECT ` + selectColumns + ` FROM blocked_slots ORDER BY slot_date, slot_time`
	return r.query(ctx, query)
}

func (r *PostgresRepository) TimesOn(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT slot_time FROM blocked_slots WHERE slot_date = $1 ORDER BY slot_time`, date)
	if err != nil {
		return nil, fmt.Errorf("blockedslots: times query failed: %w", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("blockedslots: scan times: %w", err)
	}
	return times, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Slot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("blockedslots: list query failed: %w", err)
	}
	defer rows.Close()

	slots := make([]*Slot, 0)
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.Date, &s.Time, &s.Reason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("blockedslots: scan failed: %w", err)
		}
		slots = append(slots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blockedslots: iterate failed: %w", err)
	}
	return slots, nil
}
