// Package generation runs the prompt → model → extracted files pipeline.
package generation

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/llm"
	"github.com/sejin-p/webforge/internal/metrics"
	"github.com/sejin-p/webforge/internal/parser"
	"github.com/sejin-p/webforge/internal/quality"
	"github.com/sejin-p/webforge/internal/sandbox"
	"github.com/sejin-p/webforge/internal/task"
)

// SystemPrompt instructs the model to answer with fenced code blocks the
// parser can extract.
const SystemPrompt = `You are an expert web developer. Build exactly what the user describes as a single, complete, self-contained web application.

Rules:
- Respond with the code inside fenced code blocks tagged with the language (html, jsx, tsx, css, or js).
- Prefer a single tsx or html block containing the whole application.
- For React, write one function component with a default export and import every hook you use.
- For HTML, produce a full document with <!DOCTYPE html>, a <title>, and a lang attribute.
- Do not explain the code outside the blocks.`

// Hooks receive progress while a generation runs. Either field may be nil.
type Hooks struct {
	OnStatus func(status task.Status, message string)
	OnDelta  func(chunk string)
}

func (h Hooks) status(s task.Status, msg string) {
	if h.OnStatus != nil {
		h.OnStatus(s, msg)
	}
}

func (h Hooks) delta(chunk string) {
	if h.OnDelta != nil {
		h.OnDelta(chunk)
	}
}

// Result is the outcome of one completed generation.
type Result struct {
	GenerationID   string          `json:"generation_id"`
	SessionID      string          `json:"session_id"`
	Response       string          `json:"response"`
	Files          parser.Files    `json:"files"`
	PrimaryContent string          `json:"primary_content"`
	PrimaryType    string          `json:"primary_type"`
	Issues         []quality.Issue `json:"issues,omitempty"`
	Sandbox        sandbox.Config  `json:"sandbox"`
	Cached         bool            `json:"cached"`
	DurationMs     int64           `json:"duration_ms"`
}

// Service orchestrates the pipeline against a model client and the store.
type Service struct {
	repo     db.Repository
	client   llm.Client
	log      *slog.Logger
	cacheTTL time.Duration
}

func NewService(repo db.Repository, client llm.Client, log *slog.Logger, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, client: client, log: log, cacheTTL: cacheTTL}
}

// ModelName reports the model the underlying client talks to.
func (s *Service) ModelName() string {
	return s.client.ModelName()
}

// Generate runs the full pipeline for one prompt. The generation record
// identified by generationID must already exist; Generate updates it to
// its terminal state before returning.
func (s *Service) Generate(ctx context.Context, generationID, sessionID, prompt string, hooks Hooks) (*Result, error) {
	start := time.Now()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	res, err := s.run(ctx, generationID, sessionID, prompt, hooks)
	elapsed := time.Since(start)

	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		if uerr := s.repo.UpdateGeneration(ctx, db.UpdateGenerationParams{
			ID:         generationID,
			Status:     string(task.StatusFailed),
			Error:      sql.NullString{String: err.Error(), Valid: true},
			DurationMs: elapsed.Milliseconds(),
		}); uerr != nil {
			s.log.Error("failed to record generation failure", "generation_id", generationID, "error", uerr)
		}
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues("completed").Inc()
	metrics.GenerationDuration.Observe(elapsed.Seconds())
	res.DurationMs = elapsed.Milliseconds()

	if uerr := s.repo.UpdateGeneration(ctx, db.UpdateGenerationParams{
		ID:          generationID,
		Response:    res.Response,
		Status:      string(task.StatusCompleted),
		PrimaryType: res.PrimaryType,
		DurationMs:  res.DurationMs,
	}); uerr != nil {
		return nil, fmt.Errorf("record generation result: %w", uerr)
	}

	return res, nil
}

func (s *Service) run(ctx context.Context, generationID, sessionID, prompt string, hooks Hooks) (*Result, error) {
	history, err := s.repo.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.UserMessage(prompt))

	response, cached, err := s.complete(ctx, prompt, len(history) == 0, messages, hooks)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.AppendMessage(ctx, db.AppendMessageParams{
		SessionID: sessionID, Role: llm.RoleUser, Content: prompt,
	}); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if _, err := s.repo.AppendMessage(ctx, db.AppendMessageParams{
		SessionID: sessionID, Role: llm.RoleAssistant, Content: response,
	}); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	hooks.status(task.StatusParsing, "extracting code")

	files := parser.Extract(response)
	primaryContent, primaryType := files.Primary()

	return &Result{
		GenerationID:   generationID,
		SessionID:      sessionID,
		Response:       response,
		Files:          files,
		PrimaryContent: primaryContent,
		PrimaryType:    primaryType,
		Issues:         quality.Check(files),
		Sandbox:        sandbox.Build(files),
		Cached:         cached,
	}, nil
}

// complete returns the model output for the conversation, serving a
// cached response when the prompt opens a fresh session. Cached output
// is replayed as a single delta so SSE clients still see content.
func (s *Service) complete(ctx context.Context, prompt string, cacheable bool, messages []llm.Message, hooks Hooks) (string, bool, error) {
	key := cacheKey(prompt, s.client.ModelName())

	if cacheable && s.cacheTTL > 0 {
		cached, err := s.repo.GetCachedResponse(ctx, db.GetCachedResponseParams{
			PromptHash: key, Model: s.client.ModelName(),
		})
		switch {
		case err == nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			s.log.Debug("serving cached response", "model", s.client.ModelName())
			hooks.status(task.StatusGenerating, "serving cached response")
			hooks.delta(cached)
			return cached, true, nil
		case db.IsNoRows(err):
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			// cache trouble must not block generation
			s.log.Warn("response cache lookup failed", "error", err)
		}
	}

	hooks.status(task.StatusGenerating, "calling model")

	deltas := make(chan string)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for chunk := range deltas {
			hooks.delta(chunk)
		}
	}()

	callStart := time.Now()
	response, err := s.client.Stream(ctx, SystemPrompt, messages, deltas)
	close(deltas)
	<-relayDone
	metrics.ModelCallDuration.Observe(time.Since(callStart).Seconds())
	if err != nil {
		return "", false, err
	}

	if cacheable && s.cacheTTL > 0 {
		if cerr := s.repo.CacheResponse(ctx, db.CacheResponseParams{
			PromptHash: key,
			Model:      s.client.ModelName(),
			Response:   response,
			ExpiresAt:  time.Now().Add(s.cacheTTL),
		}); cerr != nil {
			s.log.Warn("failed to cache response", "error", cerr)
		}
	}

	return response, false, nil
}

func cacheKey(prompt, model string) string {
	h := sha256.Sum256([]byte(SystemPrompt + "\x00" + model + "\x00" + prompt))
	return hex.EncodeToString(h[:])
}
