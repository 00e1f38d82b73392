package jobs

import (
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle position of a background task.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"

	// StateNotFound is reported for task ids the tracker has never seen,
	// including all tasks from before the last daemon restart.
	StateNotFound State = "not_found"
)

// Task is a point-in-time snapshot of one background task.
type Task struct {
	ID         string    `json:"task_id"`
	State      State     `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Tracker holds task snapshots keyed by task id. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]Task)}
}

// PrepareTaskID derives the deterministic task id for a video's
// preparation run, so repeated requests poll the same task.
func PrepareTaskID(videoID string) string {
	return fmt.Sprintf("prepare_%s", videoID)
}

// Start records a task as running. If the id is already running the
// existing snapshot is kept and false is returned, so a duplicate request
// attaches to the in-flight run instead of spawning another.
func (t *Tracker) Start(id, detail string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.tasks[id]; ok && existing.State == StateRunning {
		return false
	}
	t.tasks[id] = Task{
		ID:        id,
		State:     StateRunning,
		Detail:    detail,
		StartedAt: time.Now().UTC(),
	}
	return true
}

// Complete marks a running task as completed. Completion is recorded once;
// later calls for the same run are ignored.
func (t *Tracker) Complete(id, detail string) {
	t.finish(id, StateCompleted, detail)
}

// Fail marks a running task as failed with the given reason.
func (t *Tracker) Fail(id, reason string) {
	t.finish(id, StateFailed, reason)
}

func (t *Tracker) finish(id string, state State, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok || task.State != StateRunning {
		return
	}
	task.State = state
	task.Detail = detail
	task.FinishedAt = time.Now().UTC()
	t.tasks[id] = task
}

// Get returns the snapshot for a task id. Unknown ids report
// StateNotFound rather than an error; the API maps that to 404.
func (t *Tracker) Get(id string) Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if task, ok := t.tasks[id]; ok {
		return task
	}
	return Task{ID: id, State: StateNotFound}
}

// Running returns how many tasks are currently in the running state.
func (t *Tracker) Running() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, task := range t.tasks {
		if task.State == StateRunning {
			count++
		}
	}
	return count
}
