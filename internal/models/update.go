package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Update is the structured delta extracted from a single agent turn. Nil
// pointers and empty strings mean the field was not part of the turn.
type Update struct {
	SuggestCompletion   *bool          `json:"suggest_completion,omitempty"`
	OnboardingCompleted *bool          `json:"onboarding_completed,omitempty"`
	CheckFamilyCode     *string        `json:"check_family_code,omitempty"`
	JoinFamilyID        string         `json:"join_family_id,omitempty"`
	FamilyName          string         `json:"family_name,omitempty"`
	FamilyCode          string         `json:"family_code,omitempty"`
	ProfileData         map[string]any `json:"profile_data,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u Update) IsEmpty() bool {
	return u.SuggestCompletion == nil &&
		u.OnboardingCompleted == nil &&
		u.CheckFamilyCode == nil &&
		u.JoinFamilyID == "" &&
		u.FamilyName == "" &&
		u.FamilyCode == "" &&
		len(u.ProfileData) == 0
}

// Completes reports whether the update marks onboarding as completed.
func (u Update) Completes() bool {
	return u.OnboardingCompleted != nil && *u.OnboardingCompleted
}

// Role returns the lower-cased role carried in the update's profile data.
func (u Update) Role() string {
	return DataString(u.ProfileData, "role")
}

// Clone returns a copy that shares no maps or pointers with u.
func (u Update) Clone() Update {
	out := u
	if u.SuggestCompletion != nil {
		out.SuggestCompletion = Bool(*u.SuggestCompletion)
	}
	if u.OnboardingCompleted != nil {
		out.OnboardingCompleted = Bool(*u.OnboardingCompleted)
	}
	if u.CheckFamilyCode != nil {
		code := *u.CheckFamilyCode
		out.CheckFamilyCode = &code
	}
	if u.ProfileData != nil {
		out.ProfileData = make(map[string]any, len(u.ProfileData))
		for k, v := range u.ProfileData {
			out.ProfileData[k] = v
		}
	}
	return out
}

// ParseUpdate converts the loosely typed "updates" object produced by a
// model into an Update. Values of the wrong shape are ignored rather than
// failing the whole turn; JSON null means absent.
func ParseUpdate(raw map[string]any) Update {
	var u Update
	if raw == nil {
		return u
	}
	if b, ok := parseBool(raw["suggest_completion"]); ok {
		u.SuggestCompletion = &b
	}
	if b, ok := parseBool(raw["onboarding_completed"]); ok {
		u.OnboardingCompleted = &b
	}
	if code, ok := parseText(raw["check_family_code"]); ok {
		u.CheckFamilyCode = &code
	}
	if s, ok := parseText(raw["join_family_id"]); ok {
		u.JoinFamilyID = s
	}
	if s, ok := parseText(raw["family_name"]); ok {
		u.FamilyName = s
	}
	if s, ok := parseText(raw["family_code"]); ok {
		u.FamilyCode = s
	}
	if data, ok := raw["profile_data"].(map[string]any); ok && len(data) > 0 {
		u.ProfileData = data
	}
	return u
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

func parseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func parseText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int, int64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
