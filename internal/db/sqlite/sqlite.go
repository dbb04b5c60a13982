package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sejin-p/webforge/internal/db"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Repository implements db.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(ctx context.Context, dbPath string) (*Repository, error) {
	// Strip sqlite:// prefix if present
	dbPath = strings.TrimPrefix(dbPath, "sqlite://")

	isNew := dbPath == ":memory:"
	if !isNew {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			isNew = true
		}
	}

	sqliteDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := sqliteDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := sqliteDB.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	repo := &Repository{db: sqliteDB}

	if isNew {
		if _, err := sqliteDB.ExecContext(ctx, schemaSQL); err != nil {
			sqliteDB.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
		slog.Info("created new SQLite database", "path", dbPath)
	}

	return repo, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Session methods

func (r *Repository) CreateSession(ctx context.Context, id string) (db.Session, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at)
		VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, now())
	if err != nil {
		return db.Session{}, err
	}
	return r.GetSession(ctx, id)
}

func (r *Repository) GetSession(ctx context.Context, id string) (db.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM sessions WHERE id = ?
	`, id)

	var s db.Session
	var createdAtStr string
	err := row.Scan(&s.ID, &createdAtStr)
	if err == sql.ErrNoRows {
		return db.Session{}, db.ErrNoRows
	}
	if err != nil {
		return db.Session{}, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	return s, nil
}

// Message methods

func (r *Repository) AppendMessage(ctx context.Context, arg db.AppendMessageParams) (db.Message, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, arg.SessionID, arg.Role, arg.Content, now())
	if err != nil {
		return db.Message{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return db.Message{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, role, content, created_at FROM messages WHERE id = ?
	`, id)
	return scanMessage(row)
}

func (r *Repository) GetMessages(ctx context.Context, sessionID string) ([]db.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []db.Message
	for rows.Next() {
		var m db.Message
		var createdAtStr string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAtStr); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) ClearMessages(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM messages WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Generation methods

func (r *Repository) CreateGeneration(ctx context.Context, arg db.CreateGenerationParams) (db.Generation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generations (id, session_id, prompt, status, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, arg.ID, arg.SessionID, arg.Prompt, arg.Status, arg.Model, now())
	if err != nil {
		return db.Generation{}, err
	}
	return r.GetGeneration(ctx, arg.ID)
}

func (r *Repository) UpdateGeneration(ctx context.Context, arg db.UpdateGenerationParams) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE generations
		SET response = ?, status = ?, error = ?, primary_type = ?, duration_ms = ?
		WHERE id = ?
	`, arg.Response, arg.Status, nullString(arg.Error), arg.PrimaryType, arg.DurationMs, arg.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return db.ErrNoRows
	}
	return nil
}

func (r *Repository) GetGeneration(ctx context.Context, id string) (db.Generation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, prompt, response, status, error, primary_type, model, duration_ms, created_at
		FROM generations WHERE id = ?
	`, id)
	return scanGeneration(row)
}

func (r *Repository) ListGenerations(ctx context.Context, sessionID string, limit int32) ([]db.Generation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, prompt, response, status, error, primary_type, model, duration_ms, created_at
		FROM generations
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var generations []db.Generation
	for rows.Next() {
		g, err := scanGenerationRows(rows)
		if err != nil {
			return nil, err
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

func (r *Repository) GetGenerationStats(ctx context.Context) (db.GenerationStats, error) {
	var stats db.GenerationStats
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN status = 'completed' THEN duration_ms END)
		FROM generations
	`).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &avg)
	if err != nil {
		return db.GenerationStats{}, err
	}
	if avg.Valid {
		stats.AvgDurationMs = avg.Float64
	}
	return stats, nil
}

// Cache methods

func (r *Repository) GetCachedResponse(ctx context.Context, arg db.GetCachedResponseParams) (string, error) {
	var response string
	err := r.db.QueryRowContext(ctx, `
		SELECT response
		FROM response_cache
		WHERE prompt_hash = ? AND model = ? AND expires_at > ?
	`, arg.PromptHash, arg.Model, now()).Scan(&response)
	if err == sql.ErrNoRows {
		return "", db.ErrNoRows
	}
	return response, err
}

func (r *Repository) CacheResponse(ctx context.Context, arg db.CacheResponseParams) error {
	expires := arg.ExpiresAt.UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO response_cache (prompt_hash, model, response, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (prompt_hash, model)
		DO UPDATE SET response = ?, cached_at = ?, expires_at = ?
	`, arg.PromptHash, arg.Model, arg.Response, now(), expires, arg.Response, now(), expires)
	return err
}

func (r *Repository) DeleteExpiredResponses(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at < ?`, now())
	return err
}

// Helper functions

func scanMessage(row *sql.Row) (db.Message, error) {
	var m db.Message
	var createdAtStr string
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAtStr)
	if err == sql.ErrNoRows {
		return db.Message{}, db.ErrNoRows
	}
	if err != nil {
		return db.Message{}, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	return m, nil
}

func scanGeneration(row *sql.Row) (db.Generation, error) {
	var g db.Generation
	var createdAtStr string
	err := row.Scan(&g.ID, &g.SessionID, &g.Prompt, &g.Response, &g.Status, &g.Error, &g.PrimaryType, &g.Model, &g.DurationMs, &createdAtStr)
	if err == sql.ErrNoRows {
		return db.Generation{}, db.ErrNoRows
	}
	if err != nil {
		return db.Generation{}, err
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	return g, nil
}

func scanGenerationRows(rows *sql.Rows) (db.Generation, error) {
	var g db.Generation
	var createdAtStr string
	if err := rows.Scan(&g.ID, &g.SessionID, &g.Prompt, &g.Response, &g.Status, &g.Error, &g.PrimaryType, &g.Model, &g.DurationMs, &createdAtStr); err != nil {
		return db.Generation{}, err
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	return g, nil
}

func nullString(s sql.NullString) interface{} {
	if s.Valid {
		return s.String
	}
	return nil
}
