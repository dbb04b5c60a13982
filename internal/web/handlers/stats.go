package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sejin-p/webforge/internal/db"
)

type StatsHandler struct {
	repo db.Repository
	log  *slog.Logger
}

func NewStatsHandler(repo db.Repository, log *slog.Logger) *StatsHandler {
	return &StatsHandler{repo: repo, log: log}
}

type statsResponse struct {
	TotalGenerations int64   `json:"total_generations"`
	Succeeded        int64   `json:"succeeded"`
	Failed           int64   `json:"failed"`
	SuccessRate      float64 `json:"success_rate"`
	AvgDurationMs    float64 `json:"avg_duration_ms"`
}

// Get reports aggregate generation counters derived from the store, so
// the numbers survive restarts.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetGenerationStats(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "getting generation stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := statsResponse{
		TotalGenerations: stats.Total,
		Succeeded:        stats.Succeeded,
		Failed:           stats.Failed,
		AvgDurationMs:    stats.AvgDurationMs,
	}
	if terminal := stats.Succeeded + stats.Failed; terminal > 0 {
		resp.SuccessRate = float64(stats.Succeeded) / float64(terminal)
	}

	writeJSON(w, http.StatusOK, resp)
}
