package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is the work executed for a task by the worker pool.
type Job func(ctx context.Context, taskID string)

type queued struct {
	taskID string
	job    Job
}

// Manager owns the in-memory task registry and a bounded worker pool.
// Finished tasks stay readable until the retention window expires so
// that polling clients can observe the terminal state.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	subMu sync.RWMutex
	subs  map[string][]chan Event

	queue     chan queued
	retention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager starts maxConcurrent workers over a queue of queueSize
// pending jobs. Submit rejects work once the queue is full.
func NewManager(maxConcurrent, queueSize int, retention time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		tasks:     make(map[string]*Task),
		subs:      make(map[string][]chan Event),
		queue:     make(chan queued, queueSize),
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < maxConcurrent; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.wg.Add(1)
	go m.reaper()

	return m
}

// Submit registers a new task and enqueues its job. The job runs on one
// of the pool workers; callers get the task back immediately. An empty
// id is replaced with a fresh UUID.
func (m *Manager) Submit(id, sessionID, prompt, model string, job Job) (*Task, error) {
	if id == "" {
		id = uuid.New().String()
	}
	t := &Task{
		ID:        id,
		SessionID: sessionID,
		Prompt:    prompt,
		Model:     model,
		Status:    StatusPending,
		Message:   "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	select {
	case m.queue <- queued{taskID: t.ID, job: job}:
	default:
		m.mu.Lock()
		delete(m.tasks, t.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("task queue full")
	}

	return t, nil
}

// Get returns a snapshot of the task so callers never race with updates.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task not found: %s", id)
	}
	return *t, nil
}

// Update moves a task to a new status and notifies subscribers.
func (m *Manager) Update(id string, status Status, message string) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	t.UpdateStatus(status, message)
	snapshot := *t
	m.mu.Unlock()

	m.publish(id, Event{Type: EventStatus, Task: &snapshot})
	return nil
}

// Fail marks a task failed and notifies subscribers.
func (m *Manager) Fail(id string, err error) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	t.SetError(err)
	snapshot := *t
	m.mu.Unlock()

	m.publish(id, Event{Type: EventStatus, Task: &snapshot})
	return nil
}

// Delta forwards a chunk of streamed model output to subscribers.
func (m *Manager) Delta(id, chunk string) {
	m.publish(id, Event{Type: EventDelta, Delta: chunk})
}

// Subscribe returns a buffered event channel for the task. The channel
// is closed when the subscriber is removed via Unsubscribe.
func (m *Manager) Subscribe(id string) (<-chan Event, error) {
	m.mu.RLock()
	_, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}

	ch := make(chan Event, 64)
	m.subMu.Lock()
	m.subs[id] = append(m.subs[id], ch)
	m.subMu.Unlock()
	return ch, nil
}

func (m *Manager) Unsubscribe(id string, ch <-chan Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	subs := m.subs[id]
	for i, c := range subs {
		if c == ch {
			m.subs[id] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(m.subs[id]) == 0 {
		delete(m.subs, id)
	}
}

func (m *Manager) publish(id string, ev Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, ch := range m.subs[id] {
		select {
		case ch <- ev:
		default:
			// subscriber is not draining, drop rather than block the pipeline
		}
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case q, ok := <-m.queue:
			if !ok {
				return
			}
			q.job(m.ctx, q.taskID)
		}
	}
}

// reaper evicts terminal tasks older than the retention window.
func (m *Manager) reaper() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.retention)
			m.mu.Lock()
			for id, t := range m.tasks {
				if t.IsTerminal() && t.UpdatedAt.Before(cutoff) {
					delete(m.tasks, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Shutdown stops the workers. Queued jobs that have not started are dropped.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
