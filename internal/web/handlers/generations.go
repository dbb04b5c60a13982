package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/generation"
	"github.com/sejin-p/webforge/internal/parser"
	"github.com/sejin-p/webforge/internal/quality"
	"github.com/sejin-p/webforge/internal/sandbox"
	"github.com/sejin-p/webforge/internal/task"
)

type GenerationHandler struct {
	repo  db.Repository
	log   *slog.Logger
	tasks *task.Manager
	svc   *generation.Service
}

func NewGenerationHandler(repo db.Repository, log *slog.Logger, tasks *task.Manager, svc *generation.Service) *GenerationHandler {
	return &GenerationHandler{repo: repo, log: log, tasks: tasks, svc: svc}
}

type createGenerationRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

type createGenerationResponse struct {
	GenerationID string `json:"generation_id"`
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
}

func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "please enter a description first")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if _, err := h.repo.CreateSession(r.Context(), sessionID); err != nil {
		h.log.ErrorContext(r.Context(), "creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	generationID := uuid.New().String()
	if _, err := h.repo.CreateGeneration(r.Context(), db.CreateGenerationParams{
		ID:        generationID,
		SessionID: sessionID,
		Prompt:    req.Prompt,
		Status:    string(task.StatusPending),
		Model:     h.svc.ModelName(),
	}); err != nil {
		h.log.ErrorContext(r.Context(), "creating generation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	prompt := req.Prompt
	_, err := h.tasks.Submit(generationID, sessionID, prompt, h.svc.ModelName(), func(ctx context.Context, taskID string) {
		hooks := generation.Hooks{
			OnStatus: func(s task.Status, msg string) {
				if err := h.tasks.Update(taskID, s, msg); err != nil {
					h.log.Warn("updating task status", "task_id", taskID, "error", err)
				}
			},
			OnDelta: func(chunk string) {
				h.tasks.Delta(taskID, chunk)
			},
		}

		if _, err := h.svc.Generate(ctx, taskID, sessionID, prompt, hooks); err != nil {
			h.log.Error("generation failed", "generation_id", taskID, "error", err)
			if ferr := h.tasks.Fail(taskID, err); ferr != nil {
				h.log.Warn("marking task failed", "task_id", taskID, "error", ferr)
			}
			return
		}

		if err := h.tasks.Update(taskID, task.StatusCompleted, "generation complete"); err != nil {
			h.log.Warn("marking task completed", "task_id", taskID, "error", err)
		}
	})
	if err != nil {
		h.log.ErrorContext(r.Context(), "enqueuing generation", "error", err)
		// The row was created pending; without this it never reaches a
		// terminal state.
		if uerr := h.repo.UpdateGeneration(r.Context(), db.UpdateGenerationParams{
			ID:     generationID,
			Status: string(task.StatusFailed),
			Error:  sql.NullString{String: "server is busy, try again shortly", Valid: true},
		}); uerr != nil {
			h.log.ErrorContext(r.Context(), "marking rejected generation failed", "error", uerr)
		}
		writeError(w, http.StatusServiceUnavailable, "server is busy, try again shortly")
		return
	}

	writeJSON(w, http.StatusAccepted, createGenerationResponse{
		GenerationID: generationID,
		SessionID:    sessionID,
		Status:       string(task.StatusPending),
	})
}

type generationResponse struct {
	GenerationID string          `json:"generation_id"`
	SessionID    string          `json:"session_id"`
	Prompt       string          `json:"prompt"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	Model        string          `json:"model"`
	Response     string          `json:"response,omitempty"`
	Files        *parser.Files   `json:"files,omitempty"`
	PrimaryType  string          `json:"primary_type,omitempty"`
	Issues       []quality.Issue `json:"issues,omitempty"`
	Sandbox      *sandbox.Config `json:"sandbox,omitempty"`
	DurationMs   int64           `json:"duration_ms,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

func toGenerationResponse(g db.Generation) generationResponse {
	resp := generationResponse{
		GenerationID: g.ID,
		SessionID:    g.SessionID,
		Prompt:       g.Prompt,
		Status:       g.Status,
		Model:        g.Model,
		Response:     g.Response,
		PrimaryType:  g.PrimaryType,
		DurationMs:   g.DurationMs,
		CreatedAt:    g.CreatedAt.Format(time.RFC3339),
	}
	if g.Error.Valid {
		resp.Error = g.Error.String
	}
	if g.Status == string(task.StatusCompleted) && g.Response != "" {
		files := parser.Extract(g.Response)
		cfg := sandbox.Build(files)
		resp.Files = &files
		resp.Issues = quality.Check(files)
		resp.Sandbox = &cfg
	}
	return resp
}

func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	g, err := h.repo.GetGeneration(r.Context(), id)
	if err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "generation not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting generation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := toGenerationResponse(g)

	// The store lags the in-memory task while the job is running.
	if t, terr := h.tasks.Get(id); terr == nil && !t.IsTerminal() {
		resp.Status = string(t.Status)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Download serves the primary extracted file with a filename derived
// from its content. A format query parameter forces the extension.
func (h *GenerationHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	g, err := h.repo.GetGeneration(r.Context(), id)
	if err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "generation not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting generation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if g.Status != string(task.StatusCompleted) {
		writeError(w, http.StatusConflict, "generation is not completed")
		return
	}

	files := parser.Extract(g.Response)
	content, _ := files.Primary()
	if content == "" {
		writeError(w, http.StatusNotFound, "no code to download")
		return
	}

	filename := parser.DetectFilename(content, r.URL.Query().Get("format"))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}
