package task

import "time"

// Status represents the lifecycle stage of a generation task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusParsing    Status = "parsing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task tracks one generation request from acceptance to completion.
type Task struct {
	ID        string    `json:"task_id"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) UpdateStatus(status Status, message string) {
	t.Status = status
	t.Message = message
	t.UpdatedAt = time.Now()
}

func (t *Task) SetError(err error) {
	t.Status = StatusFailed
	t.Error = err.Error()
	t.Message = "generation failed"
	t.UpdatedAt = time.Now()
}

// IsTerminal reports whether the task will receive no further updates.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Event is a single update delivered to task subscribers. Status events
// carry a snapshot of the task; delta events carry a chunk of model output.
type Event struct {
	Type  string `json:"type"`
	Task  *Task  `json:"task,omitempty"`
	Delta string `json:"delta,omitempty"`
}

const (
	EventStatus = "status"
	EventDelta  = "delta"
)
