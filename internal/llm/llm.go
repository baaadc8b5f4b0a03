// Package llm provides the completion capability used by every dialogue
// agent, with Gemini, OpenAI-compatible and Anthropic implementations.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Completer produces a text completion for a prompt under a system
// instruction. Implementations carry no retry policy; callers decide how to
// degrade when an error is returned.
type Completer interface {
	Complete(ctx context.Context, prompt, systemInstruction string, attachments []Attachment) (string, error)
}

// Attachment is a file sent along with a user message. Data is base64.
type Attachment struct {
	MIMEType string `json:"type"`
	Name     string `json:"name,omitempty"`
	Data     string `json:"data"`
}

// Options configure a provider.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// New builds the Completer selected by opts.Provider.
func New(ctx context.Context, opts Options) (Completer, error) {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 5000
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.6
	}

	switch strings.ToLower(opts.Provider) {
	case "gemini", "":
		return NewGemini(ctx, opts)
	case "openai":
		return NewOpenAI(opts), nil
	case "pipeshift":
		if opts.Model == "" {
			opts.Model = "neysa-qwen3-vl-30b-a3b"
		}
		return NewOpenAI(opts), nil
	case "anthropic":
		return NewAnthropic(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Provider)
	}
}
