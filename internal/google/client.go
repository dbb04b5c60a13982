package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/sejin-p/webforge/internal/llm"
	"google.golang.org/genai"
)

// Model represents a Google AI model identifier
type Model string

const (
	ModelGemini2Flash Model = "gemini-2.0-flash"
	ModelGemini2_5Pro Model = "gemini-2.5-pro"
)

var DefaultModel Model = ModelGemini2Flash

type Client struct {
	client *genai.Client
	model  Model
}

func NewClient(ctx context.Context, apiKey string, model Model) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

func (c *Client) ModelName() string { return string(c.model) }

func (c *Client) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, string(c.model), c.contents(messages), c.config(system))
	if err != nil {
		return "", fmt.Errorf("google API call failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from google")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func (c *Client) Stream(ctx context.Context, system string, messages []llm.Message, chunks chan<- string) (string, error) {
	var sb strings.Builder
	for result, err := range c.client.Models.GenerateContentStream(ctx, string(c.model), c.contents(messages), c.config(system)) {
		if err != nil {
			return "", fmt.Errorf("google stream failed: %w", err)
		}
		if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			continue
		}
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			sb.WriteString(part.Text)
			select {
			case chunks <- part.Text:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from google")
	}
	return sb.String(), nil
}

func (c *Client) config(system string) *genai.GenerateContentConfig {
	temperature := float32(llm.DefaultTemperature)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
		MaxOutputTokens:   llm.DefaultMaxTokens,
	}
}

func (c *Client) contents(messages []llm.Message) []*genai.Content {
	converted := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		converted = append(converted, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return converted
}
