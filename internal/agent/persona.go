package agent

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/llm"
)

// Persona is the conversational mode a message is routed to once
// onboarding is complete.
type Persona string

const (
	PersonaConcierge  Persona = "concierge"
	PersonaAuditor    Persona = "auditor"
	PersonaStrategist Persona = "strategist"
	PersonaGuardian   Persona = "guardian"
	PersonaCompanion  Persona = "companion"
	PersonaSimulator  Persona = "simulator"
)

type personaRule struct {
	persona  Persona
	keywords []string
}

// First match wins.
var personaRules = []personaRule{
	{PersonaGuardian, []string{"emergency", "hurt", "pain"}},
	{PersonaStrategist, []string{"plan", "schedule"}},
	{PersonaCompanion, []string{"sad", "lonely"}},
	{PersonaAuditor, []string{"analyze", "report"}},
	{PersonaSimulator, []string{"simulate", "mock", "generate data"}},
}

// Classify routes message to a persona by keyword substring match over the
// lower-cased text. Messages matching nothing go to the concierge.
func Classify(message string) Persona {
	lower := strings.ToLower(message)
	for _, rule := range personaRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.persona
			}
		}
	}
	return PersonaConcierge
}

const msgPersonaTrouble = "I'm having trouble connecting right now. Please try again in a moment."

// PersonaChat answers free conversation under a persona instruction.
type PersonaChat struct {
	completer    llm.Completer
	instructions map[Persona]string
	logger       *logrus.Logger
}

// NewPersonaChat creates a PersonaChat. Personas missing from instructions
// fall back to the concierge.
func NewPersonaChat(completer llm.Completer, instructions map[Persona]string, logger *logrus.Logger) *PersonaChat {
	if instructions == nil {
		instructions = DefaultPersonaInstructions()
	}
	return &PersonaChat{completer: completer, instructions: instructions, logger: logger}
}

// For returns the Agent speaking as p.
func (c *PersonaChat) For(p Persona) Agent {
	return &personaAgent{chat: c, persona: p}
}

func (c *PersonaChat) instruction(p Persona) string {
	if s, ok := c.instructions[p]; ok {
		return s
	}
	return c.instructions[PersonaConcierge]
}

type personaAgent struct {
	chat    *PersonaChat
	persona Persona
}

func (a *personaAgent) Process(ctx context.Context, req Request) Reply {
	out, err := a.chat.completer.Complete(ctx, req.Message, a.chat.instruction(a.persona), req.Attachments)
	if err != nil {
		a.chat.logger.WithError(err).WithField("persona", a.persona).Error("Persona completion failed")
		return text(msgPersonaTrouble)
	}
	return text(strings.TrimSpace(out))
}
