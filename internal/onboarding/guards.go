package onboarding

import (
	"strings"

	"github.com/Kerhoff/liora/internal/models"
)

// minFamilyCodeLength is the shortest candidate worth looking up.
const minFamilyCodeLength = 3

// Guard names used for logging and metrics.
const (
	GuardPioneerCode = "pioneer_code"
	GuardCodeFormat  = "code_format"
	GuardServerField = "server_field"
)

// EffectiveRole is the role that applies to an update: the role the update
// itself sets, or else the persisted one.
func EffectiveRole(u models.Update, persisted string) string {
	if role := u.Role(); role != "" {
		return role
	}
	return strings.ToLower(strings.TrimSpace(persisted))
}

// IsPioneer reports whether either the persisted role or the role set by u
// is pioneer. An update cannot talk a pioneer out of its role.
func IsPioneer(u models.Update, persisted string) bool {
	return u.Role() == models.RolePioneer ||
		strings.EqualFold(strings.TrimSpace(persisted), models.RolePioneer)
}

// StripPioneerCode removes check_family_code when pioneer is set.
// Pioneers create families; they never join one. It reports whether a field
// was removed.
func StripPioneerCode(u *models.Update, pioneer bool) bool {
	if u.CheckFamilyCode == nil || !pioneer {
		return false
	}
	u.CheckFamilyCode = nil
	return true
}

// StripServerFields clears the fields only the engine may set: the family
// to join, its name and the invite code. Model output never supplies them.
// It reports whether any was set.
func StripServerFields(u *models.Update) bool {
	forged := u.JoinFamilyID != "" || u.FamilyName != "" || u.FamilyCode != ""
	u.JoinFamilyID = ""
	u.FamilyName = ""
	u.FamilyCode = ""
	return forged
}

// ValidFamilyCode reports whether code is worth looking up: non-empty, not
// a "none"/"null" placeholder and at least three characters long.
func ValidFamilyCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < minFamilyCodeLength {
		return false
	}
	switch strings.ToLower(code) {
	case "none", "null":
		return false
	}
	return true
}

// StripInvalidCode removes a check_family_code that fails ValidFamilyCode
// and reports whether it did.
func StripInvalidCode(u *models.Update) bool {
	if u.CheckFamilyCode == nil || ValidFamilyCode(*u.CheckFamilyCode) {
		return false
	}
	u.CheckFamilyCode = nil
	return true
}
