package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const uniqueViolation = "23505"

type familyRepository struct {
	db *sql.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *sql.DB) repository.FamilyRepository {
	return &familyRepository{db: db}
}

func (r *familyRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	query := `
		INSERT INTO families (id, name, invite_code, pioneer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now()

	err := r.db.QueryRowContext(ctx, query,
		family.ID,
		family.Name,
		family.InviteCode,
		family.PioneerID,
		now,
		now,
	).Scan(&family.CreatedAt, &family.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "families_invite_code_key" {
			return nil, fmt.Errorf("code %s: %w", family.InviteCode, repository.ErrDuplicateInviteCode)
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return family, nil
}

func (r *familyRepository) GetByID(ctx context.Context, id string) (*models.Family, error) {
	query := `
		SELECT id, name, invite_code, pioneer_id, created_at, updated_at
		FROM families
		WHERE id = $1`

	family, err := scanFamily(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family by ID: %w", err)
	}

	return family, nil
}

func (r *familyRepository) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	query := `
		SELECT id, name, invite_code, pioneer_id, created_at, updated_at
		FROM families
		WHERE upper(invite_code) = upper($1)`

	family, err := scanFamily(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family by invite code: %w", err)
	}

	return family, nil
}

func scanFamily(row rowScanner) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.InviteCode,
		&family.PioneerID,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	return family, err
}
