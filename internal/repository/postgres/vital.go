package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

type vitalRepository struct {
	db *sql.DB
}

// NewVitalRepository creates a new vital repository
func NewVitalRepository(db *sql.DB) repository.VitalRepository {
	return &vitalRepository{db: db}
}

func (r *vitalRepository) Create(ctx context.Context, vitals []*models.Vital) ([]*models.Vital, error) {
	query := `
		INSERT INTO vitals (id, user_id, type, value, unit, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin vitals insert: %w", err)
	}
	defer tx.Rollback()

	written := make([]*models.Vital, 0, len(vitals))
	for _, v := range vitals {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			v.ID,
			v.UserID,
			v.Type,
			v.Value,
			v.Unit,
			v.Source,
			v.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to create vital: %w", err)
		}
		written = append(written, v)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vitals insert: %w", err)
	}
	return written, nil
}

func (r *vitalRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.Vital, error) {
	query := `
		SELECT id, user_id, type, value, unit, source, recorded_at
		FROM vitals
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vitals: %w", err)
	}
	defer rows.Close()

	var vitals []*models.Vital
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		vitals = append(vitals, v)
	}

	return vitals, rows.Err()
}

func (r *vitalRepository) LatestByType(ctx context.Context, userID string, types []string) (map[string]*models.Vital, error) {
	query := `
		SELECT DISTINCT ON (type) id, user_id, type, value, unit, source, recorded_at
		FROM vitals
		WHERE user_id = $1 AND type = ANY($2)
		ORDER BY type, recorded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest vitals: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*models.Vital, len(types))
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		latest[v.Type] = v
	}

	return latest, rows.Err()
}

func scanVital(row rowScanner) (*models.Vital, error) {
	v := &models.Vital{}
	err := row.Scan(&v.ID, &v.UserID, &v.Type, &v.Value, &v.Unit, &v.Source, &v.RecordedAt)
	return v, err
}
