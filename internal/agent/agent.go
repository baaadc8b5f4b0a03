// Package agent implements the dialogue agents behind a chat turn and the
// orchestrator that picks one of them for each message.
package agent

import (
	"context"

	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/models"
)

// Agent names reported with each turn.
const (
	NameOnboarding = "onboarding"
	NameStrategist = "strategist"
	NameSimulation = "simulation"
)

// Request is one inbound message together with what is known about the
// sender.
type Request struct {
	Message     string
	UserID      string
	Profile     *models.Profile
	Attachments []llm.Attachment
}

// Reply is the text shown to the user and the structured update the caller
// should persist. Only the onboarding agent produces non-empty updates.
type Reply struct {
	Text   string
	Update models.Update
}

// Agent handles a single conversation turn. Process never fails: every
// error degrades to a textual reply.
type Agent interface {
	Process(ctx context.Context, req Request) Reply
}

func text(s string) Reply {
	return Reply{Text: s}
}
