package db

import (
	"context"
	"database/sql"
	"time"
)

// Session groups the messages of one conversation. Follow-up prompts in
// the same session see the prior exchange.
type Session struct {
	ID        string
	CreatedAt time.Time
}

type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

type AppendMessageParams struct {
	SessionID string
	Role      string
	Content   string
}

// Generation is the persisted record of one prompt → model → files run.
type Generation struct {
	ID          string
	SessionID   string
	Prompt      string
	Response    string
	Status      string
	Error       sql.NullString
	PrimaryType string
	Model       string
	DurationMs  int64
	CreatedAt   time.Time
}

type CreateGenerationParams struct {
	ID        string
	SessionID string
	Prompt    string
	Status    string
	Model     string
}

type UpdateGenerationParams struct {
	ID          string
	Response    string
	Status      string
	Error       sql.NullString
	PrimaryType string
	DurationMs  int64
}

// GenerationStats aggregates terminal generations for the stats endpoint.
type GenerationStats struct {
	Total         int64
	Succeeded     int64
	Failed        int64
	AvgDurationMs float64
}

type CacheResponseParams struct {
	PromptHash string
	Model      string
	Response   string
	ExpiresAt  time.Time
}

type GetCachedResponseParams struct {
	PromptHash string
	Model      string
}

// Repository is the storage interface shared by the SQLite and
// PostgreSQL backends.
type Repository interface {
	CreateSession(ctx context.Context, id string) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)

	AppendMessage(ctx context.Context, arg AppendMessageParams) (Message, error)
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)
	ClearMessages(ctx context.Context, sessionID string) (int64, error)

	CreateGeneration(ctx context.Context, arg CreateGenerationParams) (Generation, error)
	UpdateGeneration(ctx context.Context, arg UpdateGenerationParams) error
	GetGeneration(ctx context.Context, id string) (Generation, error)
	ListGenerations(ctx context.Context, sessionID string, limit int32) ([]Generation, error)
	GetGenerationStats(ctx context.Context) (GenerationStats, error)

	GetCachedResponse(ctx context.Context, arg GetCachedResponseParams) (string, error)
	CacheResponse(ctx context.Context, arg CacheResponseParams) error
	DeleteExpiredResponses(ctx context.Context) error

	Close() error
}
