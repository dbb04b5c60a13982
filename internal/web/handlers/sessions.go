package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/sejin-p/webforge/internal/db"
)

type SessionHandler struct {
	repo db.Repository
	log  *slog.Logger
}

func NewSessionHandler(repo db.Repository, log *slog.Logger) *SessionHandler {
	return &SessionHandler{repo: repo, log: log}
}

type messageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []messageResponse `json:"messages"`
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.repo.GetSession(r.Context(), id); err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	msgs, err := h.repo.GetMessages(r.Context(), id)
	if err != nil {
		h.log.ErrorContext(r.Context(), "getting messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: id,
		Messages: lo.Map(msgs, func(m db.Message, _ int) messageResponse {
			return messageResponse{
				Role:      m.Role,
				Content:   m.Content,
				CreatedAt: m.CreatedAt.Format(time.RFC3339),
			}
		}),
	})
}

type clearHistoryResponse struct {
	SessionID string `json:"session_id"`
	Cleared   int64  `json:"cleared"`
}

func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.repo.GetSession(r.Context(), id); err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	n, err := h.repo.ClearMessages(r.Context(), id)
	if err != nil {
		h.log.ErrorContext(r.Context(), "clearing messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, clearHistoryResponse{SessionID: id, Cleared: n})
}
