package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini completes prompts with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, opts: opts}, nil
}

// Complete implements Completer. Attachments of any type are passed inline;
// Gemini reads images, PDFs and text natively.
func (g *Gemini) Complete(ctx context.Context, prompt, systemInstruction string, attachments []Attachment) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, a := range attachments {
		if a.Data == "" {
			continue
		}
		raw, err := a.Bytes()
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromBytes(raw, a.mimeType()))
	}

	temperature := float32(g.opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.opts.MaxTokens),
		Temperature:     &temperature,
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
