package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const profileColumns = `id, full_name, family_id, onboarding_completed, suggest_completion, profile_data, telegram_id, version, created_at, updated_at`

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, full_name, family_id, onboarding_completed, suggest_completion, profile_data, telegram_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
		RETURNING version, created_at, updated_at`

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	data, err := marshalData(profile.ProfileData)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.FullName,
		profile.FamilyID,
		profile.OnboardingCompleted,
		profile.SuggestCompletion,
		data,
		profile.TelegramID,
		now,
		now,
	).Scan(&profile.Version, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	return profile, nil
}

func (r *profileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE telegram_id = $1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by telegram ID: %w", err)
	}

	return profile, nil
}

func (r *profileRepository) GetByFamily(ctx context.Context, familyID string) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE family_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $3, family_id = $4, onboarding_completed = $5, suggest_completion = $6,
		    profile_data = $7, telegram_id = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	data, err := marshalData(profile.ProfileData)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.Version,
		profile.FullName,
		profile.FamilyID,
		profile.OnboardingCompleted,
		profile.SuggestCompletion,
		data,
		profile.TelegramID,
		time.Now(),
	).Scan(&profile.Version, &profile.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s at version %d: %w", profile.ID, profile.Version, repository.ErrVersionConflict)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	profile := &models.Profile{}
	var data []byte
	if err := row.Scan(
		&profile.ID,
		&profile.FullName,
		&profile.FamilyID,
		&profile.OnboardingCompleted,
		&profile.SuggestCompletion,
		&data,
		&profile.TelegramID,
		&profile.Version,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}

	profile.ProfileData = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &profile.ProfileData); err != nil {
			return nil, fmt.Errorf("failed to decode profile_data for %s: %w", profile.ID, err)
		}
	}
	return profile, nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile_data: %w", err)
	}
	return b, nil
}
