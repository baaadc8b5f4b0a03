// Package service is the application layer shared by the HTTP and Telegram
// transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/agent"
	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/profile"
	"github.com/Kerhoff/liora/internal/repository"
	"github.com/Kerhoff/liora/pkg/logger"
)

var (
	// ErrProfileNotFound is returned when the requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrFamilyNotFound is returned when the requested family does not exist.
	ErrFamilyNotFound = errors.New("family not found")
	// ErrScheduleNotFound is returned when the requested schedule entry does not exist.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrInventoryItemNotFound is returned when the requested kitchen item does not exist.
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	// ErrInvalidInput wraps validation failures of caller supplied data.
	ErrInvalidInput = errors.New("invalid input")
)

// Orchestrator answers chat messages.
type Orchestrator interface {
	Route(message string, c agent.Context) string
	ProcessMessage(ctx context.Context, message string, c agent.Context, attachments []llm.Attachment) (string, models.Update)
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	logger       *logrus.Logger
	metrics      *metrics.Metrics
	Profiles     repository.ProfileRepository
	Families     repository.FamilyRepository
	Schedules    repository.ScheduleRepository
	Vitals       repository.VitalRepository
	Inventory    repository.InventoryRepository
	orchestrator Orchestrator
	applier      *profile.Applier
	now          func() time.Time
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, m *metrics.Metrics,
	profiles repository.ProfileRepository,
	families repository.FamilyRepository,
	schedules repository.ScheduleRepository,
	vitals repository.VitalRepository,
	inventory repository.InventoryRepository,
	orchestrator Orchestrator,
	applier *profile.Applier,
) *Service {
	return &Service{
		logger:       logger,
		metrics:      m,
		Profiles:     profiles,
		Families:     families,
		Schedules:    schedules,
		Vitals:       vitals,
		Inventory:    inventory,
		orchestrator: orchestrator,
		applier:      applier,
		now:          time.Now,
	}
}

// ChatRequest is one inbound chat message.
type ChatRequest struct {
	UserID      string           `json:"user_id"`
	Message     string           `json:"message"`
	Attachments []llm.Attachment `json:"attachments,omitempty"`
}

// ChatResponse is the reply to a chat message.
type ChatResponse struct {
	Response string       `json:"response"`
	Metadata ChatMetadata `json:"metadata"`
}

// ChatMetadata describes how a message was handled.
type ChatMetadata struct {
	Agent   string        `json:"agent"`
	Updates models.Update `json:"updates"`
}

// Chat runs one conversation turn for req.UserID and persists the
// resulting profile update. A failed write is logged and the reply is still
// returned.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := s.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	c := agent.Context{Profile: p, UserID: p.ID}
	route := s.orchestrator.Route(req.Message, c)
	reply, update := s.orchestrator.ProcessMessage(ctx, req.Message, c, req.Attachments)

	log := logger.WithFields(s.logger, logrus.Fields{
		"user_id": p.ID,
		"agent":   route,
	})
	if !update.IsEmpty() {
		saved, err := s.applier.Apply(ctx, p.ID, update)
		switch {
		case err != nil:
			log.WithError(err).Error("Failed to persist profile update")
			// No family was linked, so there is no code to hand out.
			update.FamilyCode = ""
		case update.FamilyCode != "":
			code, _ := saved.ProfileData["family_code"].(string)
			update.FamilyCode = code
		}
	}
	log.Debug("Chat turn handled")

	return &ChatResponse{
		Response: reply,
		Metadata: ChatMetadata{Agent: route, Updates: update},
	}, nil
}

// EnsureTelegramProfile retrieves the profile linked to a Telegram user, or
// creates one if none exists. A stored profile without a name takes
// fullName.
func (s *Service) EnsureTelegramProfile(ctx context.Context, telegramID int64, fullName string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)

	p, err := s.Profiles.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup profile (telegram_id=%d): %w", telegramID, err)
	}
	if p == nil {
		p, err = s.Profiles.Create(ctx, &models.Profile{
			FullName:    fullName,
			TelegramID:  &telegramID,
			ProfileData: map[string]any{},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create profile (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"profile_id":  p.ID,
			"telegram_id": telegramID,
		}).Info("Created new profile")
		return p, nil
	}

	if p.FullName == "" && fullName != "" {
		p, err = s.applier.Edit(ctx, p.ID, &fullName, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to update profile name (telegram_id=%d): %w", telegramID, err)
		}
	}
	return p, nil
}

// GetProfile returns the profile with id.
func (s *Service) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.Profiles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrProfileNotFound)
	}
	return p, nil
}

// ProfileEdit is a direct edit of profile fields. Profile data is merged
// over the stored data.
type ProfileEdit struct {
	FullName    *string        `json:"full_name"`
	ProfileData map[string]any `json:"profile_data"`
}

// UpdateProfile applies edit to the profile with id.
func (s *Service) UpdateProfile(ctx context.Context, id string, edit ProfileEdit) (*models.Profile, error) {
	if edit.FullName != nil {
		name := strings.TrimSpace(*edit.FullName)
		if name == "" {
			edit.FullName = nil
		} else {
			edit.FullName = &name
		}
	}

	p, err := s.applier.Edit(ctx, id, edit.FullName, edit.ProfileData)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrProfileNotFound)
	}
	return p, err
}

// GetFamily returns the family with id together with its members.
func (s *Service) GetFamily(ctx context.Context, id string) (*models.Family, error) {
	family, err := s.Families.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get family %s: %w", id, err)
	}
	if family == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrFamilyNotFound)
	}

	members, err := s.GetFamilyMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	family.Members = members
	return family, nil
}

// GetFamilyByCode returns the family with the given invite code.
func (s *Service) GetFamilyByCode(ctx context.Context, code string) (*models.Family, error) {
	family, err := s.Families.GetByInviteCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get family by code: %w", err)
	}
	if family == nil {
		return nil, fmt.Errorf("%s: %w", code, ErrFamilyNotFound)
	}
	return family, nil
}

// GetFamilyMembers returns the profiles of a family, oldest first.
func (s *Service) GetFamilyMembers(ctx context.Context, familyID string) ([]models.Profile, error) {
	profiles, err := s.Profiles.GetByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of family %s: %w", familyID, err)
	}
	members := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		members = append(members, *p)
	}
	return members, nil
}

// ListVitals returns the most recent vitals of a user.
func (s *Service) ListVitals(ctx context.Context, userID string, limit int) ([]*models.Vital, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	vitals, err := s.Vitals.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get vitals for %s: %w", userID, err)
	}
	return vitals, nil
}
