package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sejin-p/webforge/internal/llm"
)

// Re-export Model type and constants for external use
type Model = anthropic.Model

const (
	ModelClaudeSonnet4_5 Model = anthropic.ModelClaudeSonnet4_5_20250929
	ModelClaudeHaiku4_5  Model = anthropic.ModelClaudeHaiku4_5_20251001
	ModelClaudeOpus4_5   Model = anthropic.ModelClaudeOpus4_5_20251101
)

var DefaultModel Model = ModelClaudeSonnet4_5

type Client struct {
	client anthropic.Client
	model  Model
}

func NewClient(apiKey string, model Model) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *Client) ModelName() string { return string(c.model) }

func (c *Client) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	message, err := c.client.Messages.New(ctx, c.params(system, messages))
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(textBlock.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

func (c *Client) Stream(ctx context.Context, system string, messages []llm.Message, chunks chan<- string) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(system, messages))

	var sb strings.Builder
	for stream.Next() {
		event := stream.Current()
		if deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta); ok && textDelta.Text != "" {
				sb.WriteString(textDelta.Text)
				select {
				case chunks <- textDelta.Text:
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream failed: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

func (c *Client) params(system string, messages []llm.Message) anthropic.MessageNewParams {
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			converted = append(converted, anthropic.NewAssistantMessage(block))
		} else {
			converted = append(converted, anthropic.NewUserMessage(block))
		}
	}
	return anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: anthropic.Float(llm.DefaultTemperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: converted,
	}
}
