package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/extract"
	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/onboarding"
)

const (
	msgOnboardingTrouble = "I'm having trouble connecting right now. Please try again in a moment."
	msgNoResponse        = "I'm having trouble understanding. Could you repeat that?"
)

// Onboarding runs the onboarding conversation. The model proposes profile
// updates; the reconciler decides which of them survive.
type Onboarding struct {
	completer  llm.Completer
	reconciler *onboarding.Reconciler
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// NewOnboarding creates the onboarding agent. metrics may be nil.
func NewOnboarding(completer llm.Completer, reconciler *onboarding.Reconciler, logger *logrus.Logger, m *metrics.Metrics) *Onboarding {
	return &Onboarding{completer: completer, reconciler: reconciler, logger: logger, metrics: m}
}

// Process implements Agent.
func (a *Onboarding) Process(ctx context.Context, req Request) Reply {
	log := a.logger.WithFields(logrus.Fields{
		"agent":   NameOnboarding,
		"user_id": req.UserID,
		"state":   onboarding.Derive(req.Profile),
	})

	instruction, err := onboardingInstruction(req.Profile)
	if err != nil {
		log.WithError(err).Error("Failed to build onboarding instruction")
		return text(msgOnboardingTrouble)
	}

	prompt := fmt.Sprintf("User Message: %s\n\nRemember to return ONLY valid JSON.", req.Message)
	raw, err := a.completer.Complete(ctx, prompt, instruction, req.Attachments)
	if err != nil {
		log.WithError(err).Error("Onboarding completion failed")
		return text(msgOnboardingTrouble)
	}

	payload, ok := extract.JSON(raw)
	if !ok {
		log.Warn("Onboarding reply was not JSON, returning raw text")
		countExtractionFailure(a.metrics, NameOnboarding)
		return text(raw)
	}

	reply := extract.String(payload, "response")
	if reply == "" {
		reply = msgNoResponse
	}

	update := models.ParseUpdate(extract.Object(payload, "updates"))
	if update.IsEmpty() {
		return text(reply)
	}

	res := a.reconciler.Reconcile(ctx, update, onboarding.ContextFor(req.Profile))
	if res.Overridden {
		reply = res.Override
	}
	return Reply{Text: reply, Update: res.Update}
}

func countExtractionFailure(m *metrics.Metrics, agent string) {
	if m != nil {
		m.ExtractionFailures.WithLabelValues(agent).Inc()
	}
}
