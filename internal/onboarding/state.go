// Package onboarding holds the onboarding conversation protocol: the states
// derived from a persisted profile, the guards every model-produced update
// passes through, and the reconciler that runs the resulting side effects.
package onboarding

import (
	"github.com/Kerhoff/liora/internal/models"
)

// State is the onboarding stage a profile is in. It is derived from
// persisted fields and never stored on its own.
type State string

const (
	StateCollecting                 State = "COLLECTING"
	StateAwaitingConfirmation       State = "AWAITING_CONFIRMATION"
	StateJoinerAwaitingCode         State = "JOINER_AWAITING_CODE"
	StateJoinerAwaitingRelationship State = "JOINER_AWAITING_RELATIONSHIP"
	StateCompleted                  State = "COMPLETED"
)

// Derive returns the state of p. A nil profile is still collecting.
func Derive(p *models.Profile) State {
	switch {
	case p == nil:
		return StateCollecting
	case p.OnboardingCompleted:
		return StateCompleted
	case p.Role() == models.RoleJoiner && !p.HasFamily():
		return StateJoinerAwaitingCode
	case p.Role() == models.RoleJoiner && p.Relationship() == "":
		return StateJoinerAwaitingRelationship
	case p.SuggestCompletion:
		return StateAwaitingConfirmation
	default:
		return StateCollecting
	}
}

// Terminal reports whether s ends onboarding.
func (s State) Terminal() bool {
	return s == StateCompleted
}
