package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI completes prompts with the Chat Completions API. It also serves
// OpenAI-compatible gateways such as PipeShift through Options.BaseURL.
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI creates an OpenAI (or compatible) completer.
func NewOpenAI(opts Options) *OpenAI {
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4o
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAI{client: &client, opts: opts}
}

// Complete implements Completer. Images become data-URI parts; other files
// are inlined into the prompt text.
func (o *OpenAI) Complete(ctx context.Context, prompt, systemInstruction string, attachments []Attachment) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemInstruction != "" {
		messages = append(messages, openai.SystemMessage(systemInstruction))
	}

	content := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(InlineText(prompt, attachments)),
	}
	for _, a := range attachments {
		if !a.IsImage() || a.Data == "" {
			continue
		}
		content = append(content, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: a.DataURI(),
		}))
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: content,
			},
		},
	})

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.opts.Model,
		Messages:    messages,
		MaxTokens:   openai.Int(o.opts.MaxTokens),
		Temperature: openai.Float(o.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
