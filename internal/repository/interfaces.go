package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kerhoff/liora/internal/models"
)

var (
	// ErrVersionConflict is returned when a conditional profile write finds
	// that the stored version moved on since the profile was read.
	ErrVersionConflict = errors.New("profile version conflict")

	// ErrDuplicateInviteCode is returned when a family is created with an
	// invite code that is already taken.
	ErrDuplicateInviteCode = errors.New("invite code already in use")
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error)
	GetByFamily(ctx context.Context, familyID string) ([]*models.Profile, error)
	// Update writes profile only if the stored version still equals
	// profile.Version, and bumps the version on success.
	Update(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

// FamilyRepository defines the interface for family data operations
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) (*models.Family, error)
	GetByID(ctx context.Context, id string) (*models.Family, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Family, error)
}

// ScheduleRepository defines the interface for schedule entry operations
type ScheduleRepository interface {
	// Create inserts entries and returns the rows actually written.
	Create(ctx context.Context, entries []*models.ScheduleEntry) ([]*models.ScheduleEntry, error)
	GetByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	GetByFamily(ctx context.Context, familyID string, filters ScheduleFilters) ([]*models.ScheduleEntry, error)
	Update(ctx context.Context, entry *models.ScheduleEntry) (*models.ScheduleEntry, error)
	// GetDue returns pending, not yet reminded entries dated on or before day.
	GetDue(ctx context.Context, day string) ([]*models.ScheduleEntry, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

// VitalRepository defines the interface for vital measurement operations
type VitalRepository interface {
	// Create inserts vitals and returns the rows actually written.
	Create(ctx context.Context, vitals []*models.Vital) ([]*models.Vital, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.Vital, error)
	// LatestByType returns the most recent vital of each of types, keyed by
	// type. Types without a recorded vital are absent.
	LatestByType(ctx context.Context, userID string, types []string) (map[string]*models.Vital, error)
}

// InventoryRepository defines the interface for kitchen inventory operations
type InventoryRepository interface {
	Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	GetByID(ctx context.Context, id string) (*models.InventoryItem, error)
	GetByFamily(ctx context.Context, familyID string) ([]*models.InventoryItem, error)
	// GetByUser returns the items of userID that belong to no family.
	GetByUser(ctx context.Context, userID string) ([]*models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// ScheduleFilters represents filters for querying schedule entries
type ScheduleFilters struct {
	Date   *string
	Status *models.ScheduleStatus
	Limit  int
}
