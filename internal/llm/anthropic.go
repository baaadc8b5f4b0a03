package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic completes prompts with the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	opts   Options
}

// NewAnthropic creates an Anthropic completer.
func NewAnthropic(opts Options) *Anthropic {
	if opts.Model == "" {
		opts.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Anthropic{client: &client, opts: opts}
}

// Complete implements Completer. Images become base64 image blocks; other
// files are inlined into the prompt text.
func (a *Anthropic) Complete(ctx context.Context, prompt, systemInstruction string, attachments []Attachment) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(InlineText(prompt, attachments)),
	}
	for _, att := range attachments {
		if !att.IsImage() || att.Data == "" {
			continue
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(att.mimeType(), att.Data))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.opts.Model),
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropic.Float(a.opts.Temperature),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if systemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemInstruction}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic returned no text")
	}
	return b.String(), nil
}
