package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/onboarding"
	"github.com/Kerhoff/liora/internal/repository"
)

const (
	maxWriteAttempts  = 3
	maxFamilyAttempts = 3
)

// ErrNotFound is returned when the profile being updated does not exist.
var ErrNotFound = errors.New("profile not found")

// Applier writes reconciled updates to the profile store.
type Applier struct {
	profiles repository.ProfileRepository
	families repository.FamilyRepository
	codes    onboarding.CodeIssuer
	locker   *Locker
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewApplier creates an Applier. metrics may be nil.
func NewApplier(
	profiles repository.ProfileRepository,
	families repository.FamilyRepository,
	codes onboarding.CodeIssuer,
	locker *Locker,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *Applier {
	return &Applier{
		profiles: profiles,
		families: families,
		codes:    codes,
		locker:   locker,
		logger:   logger,
		metrics:  m,
	}
}

// Apply merges u into the stored profile and returns the written profile.
// Writers of the same profile are serialised; a write that still loses a
// version race is re-read and re-applied. An empty update returns the
// stored profile without writing.
func (a *Applier) Apply(ctx context.Context, profileID string, u models.Update) (*models.Profile, error) {
	var family *models.Family
	saved, err := a.update(ctx, profileID, func(p *models.Profile) (bool, error) {
		if u.IsEmpty() {
			return false, nil
		}

		wasCompleted := p.OnboardingCompleted
		applyUpdate(p, u)

		if family == nil && ownsNewFamily(p, wasCompleted, u) {
			created, err := a.createFamily(ctx, p, u.FamilyCode)
			if err != nil {
				return false, err
			}
			family = created
		}
		if family != nil && !p.HasFamily() {
			id := family.ID
			p.FamilyID = &id
			p.ProfileData["family_code"] = family.InviteCode
		}
		return true, nil
	})
	if err != nil && family != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"profile_id": profileID,
			"family_id":  family.ID,
		}).Error("Family created but profile was not linked to it")
	}
	return saved, err
}

// Edit sets the full name when fullName is non-nil and merges data over the
// stored profile data.
func (a *Applier) Edit(ctx context.Context, profileID string, fullName *string, data map[string]any) (*models.Profile, error) {
	return a.update(ctx, profileID, func(p *models.Profile) (bool, error) {
		changed := false
		if fullName != nil && *fullName != p.FullName {
			p.FullName = *fullName
			changed = true
		}
		if len(data) > 0 {
			p.ProfileData = Merge(p.ProfileData, data)
			changed = true
		}
		return changed, nil
	})
}

// update runs mutate against a fresh read of the profile under its lock and
// writes the result when mutate reports a change.
func (a *Applier) update(ctx context.Context, profileID string, mutate func(p *models.Profile) (bool, error)) (*models.Profile, error) {
	unlock := a.locker.Lock(profileID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		p, err := a.profiles.GetByID(ctx, profileID)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("%s: %w", profileID, ErrNotFound)
		}

		changed, err := mutate(p)
		if err != nil {
			a.countFailure()
			return nil, err
		}
		if !changed {
			return p, nil
		}

		saved, err := a.profiles.Update(ctx, p)
		if err == nil {
			a.logger.WithFields(logrus.Fields{
				"profile_id": saved.ID,
				"version":    saved.Version,
				"completed":  saved.OnboardingCompleted,
			}).Debug("Profile updated")
			return saved, nil
		}

		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxWriteAttempts {
			if a.metrics != nil {
				a.metrics.VersionConflicts.Inc()
			}
			a.logger.WithFields(logrus.Fields{
				"profile_id": profileID,
				"attempt":    attempt,
			}).Warn("Profile changed concurrently, retrying update")
			continue
		}

		a.countFailure()
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
}

// applyUpdate folds u into p in place.
func applyUpdate(p *models.Profile, u models.Update) {
	wasPioneer := p.Role() == models.RolePioneer
	p.ProfileData = Merge(p.ProfileData, u.ProfileData)

	if u.JoinFamilyID != "" && !wasPioneer && p.Role() != models.RolePioneer {
		id := u.JoinFamilyID
		p.FamilyID = &id
	}
	if u.SuggestCompletion != nil {
		p.SuggestCompletion = *u.SuggestCompletion
	}
	if u.OnboardingCompleted != nil {
		p.OnboardingCompleted = *u.OnboardingCompleted
	}
}

// ownsNewFamily reports whether this write completes a pioneer who still
// needs the family behind the issued code.
func ownsNewFamily(p *models.Profile, wasCompleted bool, u models.Update) bool {
	return !wasCompleted &&
		p.OnboardingCompleted &&
		p.Role() == models.RolePioneer &&
		!p.HasFamily() &&
		u.FamilyCode != ""
}

func (a *Applier) createFamily(ctx context.Context, p *models.Profile, code string) (*models.Family, error) {
	name := familyName(p)
	for attempt := 1; ; attempt++ {
		family, err := a.families.Create(ctx, &models.Family{
			Name:       name,
			InviteCode: code,
			PioneerID:  p.ID,
		})
		if err == nil {
			a.logger.WithFields(logrus.Fields{
				"family_id":   family.ID,
				"pioneer_id":  p.ID,
				"invite_code": family.InviteCode,
			}).Info("Family created")
			return family, nil
		}
		if !errors.Is(err, repository.ErrDuplicateInviteCode) || attempt >= maxFamilyAttempts {
			return nil, fmt.Errorf("failed to create family: %w", err)
		}

		a.logger.WithField("invite_code", code).Warn("Invite code taken, issuing another")
		code, err = a.codes.Issue()
		if err != nil {
			return nil, fmt.Errorf("failed to reissue invite code: %w", err)
		}
	}
}

func familyName(p *models.Profile) string {
	if name, ok := p.ProfileData["family_name"].(string); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	return p.DisplayName() + "'s Family"
}

func (a *Applier) countFailure() {
	if a.metrics != nil {
		a.metrics.PersistenceFailures.Inc()
	}
}
