package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sejin-p/webforge/internal/db"
)

//go:embed schema.sql
var schemaSQL string

// Repository implements db.Repository using PostgreSQL via pgx
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 30 * time.Second
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// PoolStats exposes pgxpool statistics for the metrics exporter.
func (r *Repository) PoolStats() *pgxpool.Stat {
	return r.pool.Stat()
}

// Session methods

func (r *Repository) CreateSession(ctx context.Context, id string) (db.Session, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, id)
	if err != nil {
		return db.Session{}, err
	}
	return r.GetSession(ctx, id)
}

func (r *Repository) GetSession(ctx context.Context, id string) (db.Session, error) {
	var s db.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return db.Session{}, db.ErrNoRows
	}
	return s, err
}

// Message methods

func (r *Repository) AppendMessage(ctx context.Context, arg db.AppendMessageParams) (db.Message, error) {
	var m db.Message
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, role, content, created_at
	`, arg.SessionID, arg.Role, arg.Content).Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt)
	return m, err
}

func (r *Repository) GetMessages(ctx context.Context, sessionID string) ([]db.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []db.Message
	for rows.Next() {
		var m db.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) ClearMessages(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Generation methods

func (r *Repository) CreateGeneration(ctx context.Context, arg db.CreateGenerationParams) (db.Generation, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO generations (id, session_id, prompt, status, model)
		VALUES ($1, $2, $3, $4, $5)
	`, arg.ID, arg.SessionID, arg.Prompt, arg.Status, arg.Model)
	if err != nil {
		return db.Generation{}, err
	}
	return r.GetGeneration(ctx, arg.ID)
}

func (r *Repository) UpdateGeneration(ctx context.Context, arg db.UpdateGenerationParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE generations
		SET response = $1, status = $2, error = $3, primary_type = $4, duration_ms = $5
		WHERE id = $6
	`, arg.Response, arg.Status, arg.Error, arg.PrimaryType, arg.DurationMs, arg.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNoRows
	}
	return nil
}

func (r *Repository) GetGeneration(ctx context.Context, id string) (db.Generation, error) {
	var g db.Generation
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, prompt, response, status, error, primary_type, model, duration_ms, created_at
		FROM generations WHERE id = $1
	`, id).Scan(&g.ID, &g.SessionID, &g.Prompt, &g.Response, &g.Status, &g.Error, &g.PrimaryType, &g.Model, &g.DurationMs, &g.CreatedAt)
	if err == pgx.ErrNoRows {
		return db.Generation{}, db.ErrNoRows
	}
	return g, err
}

func (r *Repository) ListGenerations(ctx context.Context, sessionID string, limit int32) ([]db.Generation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, prompt, response, status, error, primary_type, model, duration_ms, created_at
		FROM generations
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var generations []db.Generation
	for rows.Next() {
		var g db.Generation
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Prompt, &g.Response, &g.Status, &g.Error, &g.PrimaryType, &g.Model, &g.DurationMs, &g.CreatedAt); err != nil {
			return nil, err
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

func (r *Repository) GetGenerationStats(ctx context.Context) (db.GenerationStats, error) {
	var stats db.GenerationStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_ms) FILTER (WHERE status = 'completed'), 0)
		FROM generations
	`).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.AvgDurationMs)
	return stats, err
}

// Cache methods

func (r *Repository) GetCachedResponse(ctx context.Context, arg db.GetCachedResponseParams) (string, error) {
	var response string
	err := r.pool.QueryRow(ctx, `
		SELECT response
		FROM response_cache
		WHERE prompt_hash = $1 AND model = $2 AND expires_at > now()
	`, arg.PromptHash, arg.Model).Scan(&response)
	if err == pgx.ErrNoRows {
		return "", db.ErrNoRows
	}
	return response, err
}

func (r *Repository) CacheResponse(ctx context.Context, arg db.CacheResponseParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO response_cache (prompt_hash, model, response, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (prompt_hash, model)
		DO UPDATE SET response = $3, cached_at = now(), expires_at = $4
	`, arg.PromptHash, arg.Model, arg.Response, arg.ExpiresAt)
	return err
}

func (r *Repository) DeleteExpiredResponses(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM response_cache WHERE expires_at < now()`)
	return err
}
