package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sejin-p/webforge/internal/template"
)

type TemplateHandler struct {
	log *slog.Logger
}

func NewTemplateHandler(log *slog.Logger) *TemplateHandler {
	return &TemplateHandler{log: log}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": template.List()})
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, err := template.Get(name)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting template", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, t)
}
