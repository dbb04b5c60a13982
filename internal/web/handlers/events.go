package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/task"
)

const heartbeatInterval = 30 * time.Second

// Events streams task progress for one generation as server-sent events.
// Model output chunks arrive as `delta` events and lifecycle changes as
// `status` events; the stream closes after the terminal status.
func (h *GenerationHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before reading the snapshot. A transition landing between
	// the two is then either in the snapshot or on the channel, never lost.
	events, err := h.tasks.Subscribe(id)
	if err != nil {
		// The reaper evicts terminal tasks; replay the stored record.
		h.replayStoredStatus(w, r, flusher, id)
		return
	}
	defer h.tasks.Unsubscribe(id, events)

	t, err := h.tasks.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "generation not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sendEvent(w, task.Event{Type: task.EventStatus, Task: &t})
	flusher.Flush()

	if t.IsTerminal() {
		return
	}

	clientGone := r.Context().Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			sendEvent(w, ev)
			flusher.Flush()

			if ev.Type == task.EventStatus && ev.Task.IsTerminal() {
				return
			}

		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// replayStoredStatus serves the event stream for a generation whose task
// has left memory: a single status event from the store, then the stream
// closes.
func (h *GenerationHandler) replayStoredStatus(w http.ResponseWriter, r *http.Request, flusher http.Flusher, id string) {
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

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	t := task.Task{ID: g.ID, SessionID: g.SessionID, Status: task.Status(g.Status)}
	if g.Error.Valid {
		t.Error = g.Error.String
	}
	sendEvent(w, task.Event{Type: task.EventStatus, Task: &t})
	flusher.Flush()
}

type statusEventData struct {
	Status  task.Status `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
}

type deltaEventData struct {
	Content string `json:"content"`
}

func sendEvent(w http.ResponseWriter, ev task.Event) {
	var data any
	switch ev.Type {
	case task.EventDelta:
		data = deltaEventData{Content: ev.Delta}
	default:
		data = statusEventData{Status: ev.Task.Status, Message: ev.Task.Message, Error: ev.Task.Error}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}
