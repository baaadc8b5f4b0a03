package onboarding

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
)

// Replies that replace the agent's own text after a family code check.
const (
	msgFamilyFound      = "Great! I found **%s**. I've connected you to the circle. Now, to help me understand the family structure, how are you related to the Pioneer?"
	msgFamilyNotFound   = "I couldn't find a Family Circle with the code `%s`. Please double-check it and try again."
	msgFamilyLookupDown = "I'm having trouble connecting to the family database right now. Please try again later."
)

// FamilyLookup finds a family by invite code. A nil family with a nil error
// means no match.
type FamilyLookup interface {
	GetByInviteCode(ctx context.Context, code string) (*models.Family, error)
}

// ProfileContext is the persisted state an update is reconciled against.
type ProfileContext struct {
	Role                string
	FamilyID            *string
	OnboardingCompleted bool
}

// ContextFor builds the ProfileContext of p.
func ContextFor(p *models.Profile) ProfileContext {
	if p == nil {
		return ProfileContext{}
	}
	return ProfileContext{
		Role:                p.Role(),
		FamilyID:            p.FamilyID,
		OnboardingCompleted: p.OnboardingCompleted,
	}
}

// Result is the outcome of reconciling one update.
type Result struct {
	Update models.Update
	// Override replaces the agent's reply when Overridden is set.
	Override   string
	Overridden bool
}

func (r *Result) override(text string) {
	r.Override = text
	r.Overridden = true
}

// Reconciler applies the onboarding guards to a model-produced update and
// performs the side effects it asks for.
type Reconciler struct {
	families FamilyLookup
	codes    CodeIssuer
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// NewReconciler creates a Reconciler. metrics may be nil.
func NewReconciler(families FamilyLookup, codes CodeIssuer, logger *logrus.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{families: families, codes: codes, logger: logger, metrics: m}
}

// Reconcile runs, in order: the server-field guard, the pioneer guard, the
// code-format guard, the family code lookup and invite code issuance. raw is
// not modified. Only the lookup sets the family to join and only the code
// issuer sets the invite code.
//
// A failed lookup drops the whole update for the turn so nothing partial
// reaches the profile.
func (r *Reconciler) Reconcile(ctx context.Context, raw models.Update, pc ProfileContext) Result {
	res := Result{Update: raw.Clone()}
	u := &res.Update
	role := EffectiveRole(*u, pc.Role)

	if StripServerFields(u) {
		r.rejected(GuardServerField, "Dropped family fields supplied by the model")
	}
	if StripPioneerCode(u, IsPioneer(*u, pc.Role)) {
		r.rejected(GuardPioneerCode, "Blocked family code check for pioneer")
	}
	if code := u.CheckFamilyCode; code != nil && StripInvalidCode(u) {
		r.rejected(GuardCodeFormat, fmt.Sprintf("Skipping invalid family code %q", *code))
	}

	if u.CheckFamilyCode != nil {
		code := *u.CheckFamilyCode
		u.CheckFamilyCode = nil

		family, err := r.families.GetByInviteCode(ctx, code)
		switch {
		case err != nil:
			r.logger.WithError(err).WithField("code", code).Error("Family code lookup failed")
			r.lookup("error")
			res.Update = models.Update{}
			res.override(msgFamilyLookupDown)
			return res
		case family == nil:
			r.logger.WithField("code", code).Info("No family matches code")
			r.lookup("not_found")
			res.override(fmt.Sprintf(msgFamilyNotFound, code))
		default:
			r.logger.WithFields(logrus.Fields{
				"code":      code,
				"family_id": family.ID,
			}).Info("Family code matched")
			r.lookup("found")
			u.JoinFamilyID = family.ID
			u.FamilyName = family.Name
			res.override(fmt.Sprintf(msgFamilyFound, family.Name))
		}
	}

	if u.Completes() && role == models.RolePioneer && r.needsInviteCode(pc) {
		code, err := r.codes.Issue()
		if err != nil {
			r.logger.WithError(err).Error("Failed to issue invite code")
		} else {
			u.FamilyCode = code
			if r.metrics != nil {
				r.metrics.InviteCodesIssued.Inc()
			}
			r.logger.WithField("family_code", code).Info("Issued family invite code")
		}
	}

	return res
}

// needsInviteCode reports whether a completing pioneer still needs a code.
// A profile that already completed onboarding or already owns a family got
// its code on an earlier turn.
func (r *Reconciler) needsInviteCode(pc ProfileContext) bool {
	return !pc.OnboardingCompleted && (pc.FamilyID == nil || *pc.FamilyID == "")
}

func (r *Reconciler) rejected(guard, msg string) {
	r.logger.WithField("guard", guard).Info(msg)
	if r.metrics != nil {
		r.metrics.GuardRejections.WithLabelValues(guard).Inc()
	}
}

func (r *Reconciler) lookup(outcome string) {
	if r.metrics != nil {
		r.metrics.FamilyLookups.WithLabelValues(outcome).Inc()
	}
}
