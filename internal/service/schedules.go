package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const (
	familyMemberName  = "Family"
	familyMemberColor = "bg-purple-500"
	memberColor       = "bg-blue-500"
)

// ScheduleInput is a schedule entry created directly by a client.
type ScheduleInput struct {
	Title       string  `json:"title"`
	Time        string  `json:"time"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
	FamilyID    string  `json:"family_id"`
}

// SchedulePatch holds the fields of a schedule entry to change. Nil fields
// are left untouched.
type SchedulePatch struct {
	Status      *string `json:"status"`
	Title       *string `json:"title"`
	Time        *string `json:"time"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
}

// ListSchedules returns the schedule entries of a family, most recent
// first, each with its member display info.
func (s *Service) ListSchedules(ctx context.Context, familyID string, filters repository.ScheduleFilters) ([]*models.ScheduleEntry, error) {
	entries, err := s.Schedules.GetByFamily(ctx, familyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for family %s: %w", familyID, err)
	}
	if err := s.attachMembers(ctx, familyID, entries...); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.ScheduleEntry{}
	}
	return entries, nil
}

// CreateSchedule validates in and stores it as a pending entry.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*models.ScheduleEntry, error) {
	if strings.TrimSpace(in.FamilyID) == "" {
		return nil, fmt.Errorf("family_id is required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", ErrInvalidInput)
	}
	at, err := parseClock(in.Time)
	if err != nil {
		return nil, err
	}

	written, err := s.Schedules.Create(ctx, []*models.ScheduleEntry{{
		Title:       strings.TrimSpace(in.Title),
		Time:        at,
		Type:        models.ParseScheduleType(in.Type),
		Date:        date.Format(models.DateLayout),
		Description: strings.TrimSpace(in.Description),
		FamilyID:    in.FamilyID,
		AssignedTo:  emptyToNil(in.AssignedTo),
		Status:      models.ScheduleStatusPending,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("failed to create schedule: no rows written")
	}

	entry := written[0]
	if err := s.attachMembers(ctx, entry.FamilyID, entry); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"schedule_id": entry.ID,
		"family_id":   entry.FamilyID,
	}).Info("Schedule entry created")
	return entry, nil
}

// UpdateSchedule applies patch to the schedule entry with id.
func (s *Service) UpdateSchedule(ctx context.Context, id string, patch SchedulePatch) (*models.ScheduleEntry, error) {
	entry, err := s.Schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %s: %w", id, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrScheduleNotFound)
	}

	if patch.Status != nil {
		status := models.ScheduleStatus(strings.ToLower(strings.TrimSpace(*patch.Status)))
		switch status {
		case models.ScheduleStatusPending, models.ScheduleStatusCompleted, models.ScheduleStatusSkipped:
			entry.Status = status
		default:
			return nil, fmt.Errorf("unknown status %q: %w", *patch.Status, ErrInvalidInput)
		}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		entry.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Time != nil {
		at, err := parseClock(*patch.Time)
		if err != nil {
			return nil, err
		}
		entry.Time = at
	}
	if patch.Description != nil {
		entry.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.AssignedTo != nil {
		entry.AssignedTo = emptyToNil(patch.AssignedTo)
	}

	updated, err := s.Schedules.Update(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule %s: %w", id, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrScheduleNotFound)
	}
	if err := s.attachMembers(ctx, updated.FamilyID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// attachMembers fills the member display info of entries from the
// family's profiles.
func (s *Service) attachMembers(ctx context.Context, familyID string, entries ...*models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	profiles, err := s.Profiles.GetByFamily(ctx, familyID)
	if err != nil {
		return fmt.Errorf("failed to get members of family %s: %w", familyID, err)
	}
	byID := make(map[string]*models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for _, e := range entries {
		e.Member = memberInfo(e.AssignedTo, byID)
	}
	return nil
}

func memberInfo(assignedTo *string, members map[string]*models.Profile) *models.MemberInfo {
	if assignedTo == nil {
		return &models.MemberInfo{Name: familyMemberName, Color: familyMemberColor}
	}
	p, ok := members[*assignedTo]
	if !ok {
		return &models.MemberInfo{Name: "Unknown", Color: memberColor}
	}
	info := &models.MemberInfo{Name: p.FullName, Color: memberColor}
	if info.Name == "" {
		info.Name = "Unknown"
	}
	if color, ok := p.ProfileData["color"].(string); ok && color != "" {
		info.Color = color
	}
	return info
}

func parseClock(s string) (string, error) {
	at, err := time.Parse(models.TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("time must be HH:MM: %w", ErrInvalidInput)
	}
	return at.Format(models.TimeLayout), nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
