package models

import (
	"strings"
	"time"
)

// Roles a profile can hold inside a family circle.
const (
	RolePioneer = "pioneer"
	RoleJoiner  = "joiner"
)

// Profile represents a person using Liora. All extracted health and family
// fields live in ProfileData; keys are never dropped when one is updated.
type Profile struct {
	ID                  string         `json:"id" db:"id"`
	FullName            string         `json:"full_name" db:"full_name"`
	FamilyID            *string        `json:"family_id" db:"family_id"`
	OnboardingCompleted bool           `json:"onboarding_completed" db:"onboarding_completed"`
	SuggestCompletion   bool           `json:"suggest_completion" db:"suggest_completion"`
	ProfileData         map[string]any `json:"profile_data" db:"profile_data"`
	TelegramID          *int64         `json:"telegram_id,omitempty" db:"telegram_id"`
	Version             int64          `json:"version" db:"version"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// Role returns the lower-cased role stored in profile data, or "".
func (p *Profile) Role() string {
	if p == nil {
		return ""
	}
	return DataString(p.ProfileData, "role")
}

// Relationship returns the relationship to the family pioneer, or "".
func (p *Profile) Relationship() string {
	if p == nil {
		return ""
	}
	return DataString(p.ProfileData, "relationship")
}

// HasFamily reports whether the profile is linked to a family.
func (p *Profile) HasFamily() bool {
	return p != nil && p.FamilyID != nil && *p.FamilyID != ""
}

// DisplayName returns the best human readable name for the profile.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if name, ok := p.ProfileData["name"].(string); ok && name != "" {
		return name
	}
	return "Someone"
}

// DataString reads key from a free-form data map as a trimmed, lower-cased
// string. Non-string values yield "".
func DataString(data map[string]any, key string) string {
	v, ok := data[key].(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(v))
}
