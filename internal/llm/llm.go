package llm

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Default sampling parameters for code generation.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// Client is implemented by each chat-completion provider.
//
// Stream delivers text deltas on chunks as they arrive and returns the
// assembled response once the model finishes. Implementations never close
// chunks; ownership stays with the caller.
type Client interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
	Stream(ctx context.Context, system string, messages []Message, chunks chan<- string) (string, error)
	ModelName() string
}

// UserMessage wraps a plain prompt as a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
