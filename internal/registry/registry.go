// Package registry provides the in-memory task registry, the single source
// of truth for task status and progress.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"noteharvest/internal/harvest"
)

// Registry maps task IDs to mutable task state. Insert and lookup are safe
// under concurrent submission and polling; each entry has exactly one
// writer, the Writer handle returned at creation.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*harvest.Task
	idGen harvest.IDGenerator
	clock harvest.Clock
}

// New constructs a Registry.
func New(idGen harvest.IDGenerator, clock harvest.Clock) *Registry {
	return &Registry{
		tasks: make(map[string]*harvest.Task),
		idGen: idGen,
		clock: clock,
	}
}

// Create allocates a new pending task and returns a copy of it along with
// the exclusive Writer for its entry. The Writer is handed out exactly
// once; all mutation goes through it.
func (r *Registry) Create(keyword string, count int, credential string) (harvest.Task, *Writer, error) {
	id, err := r.idGen.NewID()
	if err != nil {
		return harvest.Task{}, nil, fmt.Errorf("generate task id: %w", err)
	}
	task := harvest.Task{
		ID:             id,
		Keyword:        keyword,
		RequestedCount: count,
		Credential:     credential,
		Status:         harvest.TaskStatusPending,
		Progress:       0,
		CreatedAt:      r.clock.Now(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[id]; exists {
		return harvest.Task{}, nil, fmt.Errorf("task id collision: %s", id)
	}
	stored := task
	r.tasks[id] = &stored
	return task, &Writer{registry: r, taskID: id}, nil
}

// Get returns a copy of the task or harvest.ErrNotFound.
func (r *Registry) Get(taskID string) (harvest.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return harvest.Task{}, harvest.ErrNotFound
	}
	return *task, nil
}

// List returns copies of all tasks sorted by creation time, newest first.
// IDs break ties so the order is stable under equal timestamps.
func (r *Registry) List() []harvest.Task {
	r.mu.RLock()
	out := make([]harvest.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *Registry) mutate(taskID string, fn func(t *harvest.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.Status.Terminal() {
		return
	}
	fn(task)
}

// Writer is the exclusive write capability for one task entry. Holding the
// only Writer enforces the single-writer rule structurally rather than by
// convention.
type Writer struct {
	registry *Registry
	taskID   string
}

// TaskID returns the task this writer owns.
func (w *Writer) TaskID() string {
	return w.taskID
}

// Start transitions the task to running with progress 0.
func (w *Writer) Start() {
	w.registry.mutate(w.taskID, func(t *harvest.Task) {
		t.Status = harvest.TaskStatusRunning
	})
}

// SetProgress records progress. Regressions are ignored so observed
// progress is monotonically non-decreasing, and values are capped at 99:
// only Complete may set 100, so progress 100 always means completed.
func (w *Writer) SetProgress(progress int) {
	w.registry.mutate(w.taskID, func(t *harvest.Task) {
		if progress > 99 {
			progress = 99
		}
		if progress > t.Progress {
			t.Progress = progress
		}
	})
}

// Complete marks the task completed with its artifact location. Progress is
// forced to exactly 100.
func (w *Writer) Complete(resultLocation string) {
	w.registry.mutate(w.taskID, func(t *harvest.Task) {
		t.Status = harvest.TaskStatusCompleted
		t.Progress = 100
		t.ResultLocation = resultLocation
	})
}

// Fail marks the task failed with the given message.
func (w *Writer) Fail(msg string) {
	w.registry.mutate(w.taskID, func(t *harvest.Task) {
		t.Status = harvest.TaskStatusFailed
		t.Error = msg
	})
}
