package agent

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
)

// Context is what the caller knows about the sender of a message.
type Context struct {
	Profile *models.Profile
	UserID  string
}

// Orchestrator routes each message to the agent that should answer it.
type Orchestrator struct {
	onboarding Agent
	strategist Agent
	simulation Agent
	personas   *PersonaChat
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// NewOrchestrator creates an Orchestrator. metrics may be nil.
func NewOrchestrator(onboarding, strategist, simulation Agent, personas *PersonaChat, logger *logrus.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		onboarding: onboarding,
		strategist: strategist,
		simulation: simulation,
		personas:   personas,
		logger:     logger,
		metrics:    m,
	}
}

// Route names the agent that handles message: onboarding until the profile
// completes it, the classified persona afterwards.
func (o *Orchestrator) Route(message string, c Context) string {
	if c.Profile == nil || !c.Profile.OnboardingCompleted {
		return NameOnboarding
	}
	return string(Classify(message))
}

// ProcessMessage answers message and returns the reply text together with
// the structured update to persist. Only onboarding turns carry updates.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message string, c Context, attachments []llm.Attachment) (string, models.Update) {
	route := o.Route(message, c)
	req := Request{
		Message:     message,
		UserID:      c.UserID,
		Profile:     c.Profile,
		Attachments: attachments,
	}

	o.logger.WithFields(logrus.Fields{
		"user_id": c.UserID,
		"route":   route,
	}).Debug("Routing message")
	if o.metrics != nil {
		o.metrics.AgentTurns.WithLabelValues(route).Inc()
	}

	var reply Reply
	switch Persona(route) {
	case NameOnboarding:
		reply = o.onboarding.Process(ctx, req)
		return reply.Text, reply.Update
	case PersonaStrategist:
		reply = o.strategist.Process(ctx, req)
	case PersonaSimulator:
		reply = o.simulation.Process(ctx, req)
	default:
		reply = o.personas.For(Persona(route)).Process(ctx, req)
	}
	return reply.Text, models.Update{}
}
