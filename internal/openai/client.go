package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sejin-p/webforge/internal/llm"
)

const DefaultModel = "gpt-4o"

// Client implements llm.Client against any OpenAI-compatible
// chat-completion endpoint (OpenAI itself, DeepSeek, vLLM, ...).
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a client. baseURL may be empty for api.openai.com.
func NewClient(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) ModelName() string { return c.model }

func (c *Client) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(system, messages, false))
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Stream(ctx context.Context, system string, messages []llm.Message, chunks chan<- string) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(system, messages, true))
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("openai stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		select {
		case chunks <- delta:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return sb.String(), nil
}

func (c *Client) request(system string, messages []llm.Message, stream bool) openai.ChatCompletionRequest {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	converted = append(converted, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    converted,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
		Stream:      stream,
	}
}
