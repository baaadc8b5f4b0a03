package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const scheduleColumns = `id, title, time, type, date, description, family_id, assigned_to, status, reminded_at, created_at`

type scheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sql.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, entries []*models.ScheduleEntry) ([]*models.ScheduleEntry, error) {
	query := `
		INSERT INTO schedules (id, title, time, type, date, description, family_id, assigned_to, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin schedule insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	written := make([]*models.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Status == "" {
			e.Status = models.ScheduleStatusPending
		}
		err := tx.QueryRowContext(ctx, query,
			e.ID,
			e.Title,
			e.Time,
			e.Type,
			e.Date,
			e.Description,
			e.FamilyID,
			e.AssignedTo,
			e.Status,
			now,
		).Scan(&e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create schedule entry: %w", err)
		}
		written = append(written, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule insert: %w", err)
	}
	return written, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	entry, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule entry by ID: %w", err)
	}

	return entry, nil
}

func (r *scheduleRepository) GetByFamily(ctx context.Context, familyID string, filters repository.ScheduleFilters) ([]*models.ScheduleEntry, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + scheduleColumns + ` FROM schedules WHERE family_id = $1`)
	args := []any{familyID}

	if filters.Date != nil {
		args = append(args, *filters.Date)
		fmt.Fprintf(&b, " AND date = $%d", len(args))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}

	// Most recent first; daily views re-sort on the client.
	b.WriteString(" ORDER BY date DESC, time DESC")

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return r.query(ctx, b.String(), args...)
}

func (r *scheduleRepository) Update(ctx context.Context, entry *models.ScheduleEntry) (*models.ScheduleEntry, error) {
	query := `
		UPDATE schedules
		SET title = $2, time = $3, type = $4, date = $5, description = $6, assigned_to = $7, status = $8
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Title,
		entry.Time,
		entry.Type,
		entry.Date,
		entry.Description,
		entry.AssignedTo,
		entry.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return entry, nil
}

func (r *scheduleRepository) GetDue(ctx context.Context, day string) ([]*models.ScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE status = $1 AND reminded_at IS NULL AND date <= $2
		ORDER BY date ASC, time ASC`

	return r.query(ctx, query, models.ScheduleStatusPending, day)
}

func (r *scheduleRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE schedules SET reminded_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark schedule entry reminded: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("schedule entry %s not found", id)
	}

	return nil
}

func (r *scheduleRepository) query(ctx context.Context, query string, args ...any) ([]*models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ScheduleEntry
	for rows.Next() {
		entry, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanSchedule(row rowScanner) (*models.ScheduleEntry, error) {
	entry := &models.ScheduleEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Time,
		&entry.Type,
		&entry.Date,
		&entry.Description,
		&entry.FamilyID,
		&entry.AssignedTo,
		&entry.Status,
		&entry.RemindedAt,
		&entry.CreatedAt,
	)
	return entry, err
}
