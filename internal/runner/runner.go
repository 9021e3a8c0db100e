// Package runner executes one harvest task to completion, owning all
// mutations to its registry entry.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"noteharvest/internal/extract"
	"noteharvest/internal/harvest"
	"noteharvest/internal/metrics"
	"noteharvest/internal/registry"
)

// Config controls Runner behavior.
type Config struct {
	// ItemDelay is the fixed pause between successive note extractions,
	// bounding the request rate against the source. Zero disables it.
	ItemDelay time.Duration
}

// Runner drives the search → extract → persist pipeline for tasks. One
// Runner serves all tasks; each task runs on its own goroutine and owns its
// registry writer.
type Runner struct {
	source    harvest.ContentSource
	extractor *extract.Extractor
	store     harvest.ResultStore
	clock     harvest.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. A nil logger defaults to a no-op logger.
func New(
	source harvest.ContentSource,
	extractor *extract.Extractor,
	store harvest.ResultStore,
	clock harvest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source:    source,
		extractor: extractor,
		store:     store,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Dispatch starts the task on a new goroutine and returns immediately.
func (r *Runner) Dispatch(ctx context.Context, task harvest.Task, w *registry.Writer) {
	go r.Run(ctx, task, w)
}

// Run executes the task until it reaches a terminal state. The entry is
// never left running after Run returns: every exit path marks it completed
// or failed, including cancellation and panics.
func (r *Runner) Run(ctx context.Context, task harvest.Task, w *registry.Writer) {
	metrics.IncActiveTasks()
	defer metrics.DecActiveTasks()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked", zap.String("task_id", task.ID), zap.Any("panic", rec))
			w.Fail(fmt.Sprintf("internal failure: %v", rec))
			metrics.ObserveTask(string(harvest.TaskStatusFailed))
		}
	}()

	w.Start()
	r.logger.Info("task started",
		zap.String("task_id", task.ID),
		zap.String("keyword", task.Keyword),
		zap.Int("requested", task.RequestedCount),
	)

	items, err := r.source.Search(ctx, task.Keyword, task.RequestedCount, harvest.SortMostEngaged, harvest.NoteTypeAll)
	if err != nil {
		r.fail(w, task.ID, err.Error())
		return
	}

	notes := items[:0:0]
	for _, item := range items {
		if item.ModelType == harvest.ModelTypeNote {
			notes = append(notes, item)
		}
	}
	total := task.RequestedCount
	if len(notes) < total {
		total = len(notes)
	}
	r.logger.Info("search completed", zap.String("task_id", task.ID), zap.Int("notes", total))

	records := make([]harvest.NoteRecord, 0, total)
	for i := 0; i < total; i++ {
		noteURL := extract.NoteURL(notes[i].ID, notes[i].Token)
		record, extractErr := r.extractor.Extract(ctx, noteURL, task.Credential)
		if ctx.Err() != nil {
			r.fail(w, task.ID, ctx.Err().Error())
			return
		}
		if extractErr != nil {
			// A single note's failure never aborts the task.
			r.logger.Warn("note extraction failed",
				zap.String("task_id", task.ID),
				zap.String("url", noteURL),
				zap.Error(extractErr),
			)
			metrics.ObserveNote("failed")
		} else {
			records = append(records, record)
			metrics.ObserveNote("extracted")
		}

		// Progress counts attempts, not successes.
		w.SetProgress((i + 1) * 100 / total)

		if i < total-1 && !r.pause(ctx) {
			r.fail(w, task.ID, ctx.Err().Error())
			return
		}
	}

	result := harvest.JobResult{
		Keyword:     task.Keyword,
		TaskID:      task.ID,
		CreatedAt:   r.clock.Now(),
		Records:     records,
		RecordCount: len(records),
	}
	location, err := r.store.Save(ctx, task.ID, result)
	if err != nil {
		r.fail(w, task.ID, fmt.Sprintf("save result: %s", err))
		return
	}

	w.Complete(location)
	metrics.ObserveTask(string(harvest.TaskStatusCompleted))
	r.logger.Info("task completed",
		zap.String("task_id", task.ID),
		zap.Int("records", len(records)),
		zap.String("location", location),
	)
}

func (r *Runner) fail(w *registry.Writer, taskID, msg string) {
	w.Fail(msg)
	metrics.ObserveTask(string(harvest.TaskStatusFailed))
	r.logger.Error("task failed", zap.String("task_id", taskID), zap.String("reason", msg))
}

// pause waits out the inter-item delay. It returns false if the context
// finished first.
func (r *Runner) pause(ctx context.Context) bool {
	if r.cfg.ItemDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.cfg.ItemDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
