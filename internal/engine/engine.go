// Package engine applies status transitions to tasks held in a storage.Store.
//
// States are idle, running, completed and failed; new tasks start idle.
// Run moves any non-running task to running, Pause moves a running task back
// to idle, and an executor reports completion or failure of a running task.
// Mutations are serialized per Engine; reads go straight to the store.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	taskerrors "github.com/abatilo/autotask/internal/errors"
	"github.com/abatilo/autotask/internal/log"
	"github.com/abatilo/autotask/internal/metrics"
	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
	"github.com/abatilo/autotask/internal/validate"
	"github.com/abatilo/autotask/internal/view"
)

const (
	ActionCreate = "create"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionReport = "report outcome"
	ActionRemove = "remove"
	ActionUpdate = "update"
)

// ReportFunc delivers the outcome of one run back to the engine.
type ReportFunc func(outcome task.Status, finishedAt time.Time) error

// Executor performs the work behind a running task. Start must return
// promptly; the work reports through report and stops when ctx is cancelled.
type Executor interface {
	Start(ctx context.Context, t *task.Task, report ReportFunc) error
}

type run struct {
	gen    uint64
	cancel context.CancelFunc
}

// Engine is the single mutation entry point for a store.
type Engine struct {
	store    *storage.Store
	creator  *validate.Creator
	executor Executor
	now      func() time.Time

	mu      sync.Mutex
	runs    map[string]run
	nextGen uint64
}

// Option configures an Engine.
type Option func(e *Engine)

// WithExecutor starts ex whenever a task enters running.
func WithExecutor(ex Executor) Option {
	return func(e *Engine) {
		e.executor = ex
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine for store.
func New(store *storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		runs:  make(map[string]run),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.creator = validate.NewCreator(store, e.now)
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *storage.Store {
	return e.store
}

// Create validates in and inserts a new idle task.
func (e *Engine) Create(ctx context.Context, in validate.Input) (*task.Task, error) {
	e.mu.Lock()
	t, err := e.creator.Create(in)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ctx = log.WithAttrs(ctx, slog.String("taskID", t.ID))
	slog.InfoContext(ctx, "task created", slog.String("name", t.Name), slog.String("schedule", t.Schedule.Descriptor))
	e.published(ActionCreate)
	return t, nil
}

// Update merges patch into a task. Status is not patchable.
func (e *Engine) Update(ctx context.Context, id string, patch storage.Patch) (*task.Task, error) {
	ctx = log.WithAttrs(ctx, slog.String("taskID", id))

	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.Update(id, patch)
	if err != nil {
		e.logFailure(ctx, ActionUpdate, err)
		return nil, err
	}

	slog.InfoContext(ctx, "task updated")
	return t, nil
}

// Run moves a task to running and starts the executor, if any.
// Running an already running task is a no-op.
func (e *Engine) Run(ctx context.Context, id string) (*task.Task, error) {
	ctx = log.WithAttrs(ctx, slog.String("taskID", id))

	var from task.Status
	started := false

	e.mu.Lock()
	t, err := e.store.Modify(id, func(t *task.Task) error {
		from = t.Status
		if t.Status == task.StatusRunning {
			return nil
		}
		t.Status = task.StatusRunning
		started = true
		return nil
	})
	if err != nil {
		e.mu.Unlock()
		e.logFailure(ctx, ActionRun, err)
		return nil, err
	}
	if !started {
		e.mu.Unlock()
		slog.DebugContext(ctx, "task already running")
		return t, nil
	}

	var (
		runCtx context.Context
		report ReportFunc
	)
	if e.executor != nil {
		runCtx, report = e.track(ctx, id)
	}
	e.mu.Unlock()

	slog.InfoContext(ctx, "task running", slog.String("from", from.String()))
	e.published(ActionRun)

	if e.executor != nil {
		if err := e.executor.Start(runCtx, t.Clone(), report); err != nil {
			slog.ErrorContext(ctx, "could not start task", slog.Any("error", errors.WithStack(err)))
			if reportErr := report(task.StatusFailed, e.now()); reportErr != nil {
				slog.DebugContext(ctx, "could not mark task failed", slog.Any("error", reportErr))
			}
		}
	}

	return t, nil
}

// track registers a new run for id and returns its context and report hook.
// e.mu must be held.
func (e *Engine) track(ctx context.Context, id string) (context.Context, ReportFunc) {
	if previous, ok := e.runs[id]; ok {
		previous.cancel()
	}

	e.nextGen++
	gen := e.nextGen
	runCtx, cancel := context.WithCancel(ctx)
	e.runs[id] = run{gen: gen, cancel: cancel}

	report := func(outcome task.Status, finishedAt time.Time) error {
		e.mu.Lock()
		defer e.mu.Unlock()

		if current, ok := e.runs[id]; !ok || current.gen != gen {
			slog.DebugContext(ctx, "ignoring outcome of superseded run", slog.String("outcome", outcome.String()))
			t, err := e.store.Get(id)
			if err != nil {
				return err
			}
			return errors.WithStack(taskerrors.InvalidTransitionError{ID: id, Current: t.Status.String(), Action: ActionReport})
		}
		_, err := e.reportLocked(ctx, id, outcome, finishedAt)
		return err
	}

	return runCtx, report
}

// untrack cancels and forgets the run of id. e.mu must be held.
func (e *Engine) untrack(id string) {
	if r, ok := e.runs[id]; ok {
		r.cancel()
		delete(e.runs, id)
	}
}

// Pause moves a running task back to idle and cancels its run.
// Pausing a task that is not running is a no-op.
func (e *Engine) Pause(ctx context.Context, id string) (*task.Task, error) {
	ctx = log.WithAttrs(ctx, slog.String("taskID", id))

	e.mu.Lock()
	paused := false
	t, err := e.store.Modify(id, func(t *task.Task) error {
		if t.Status != task.StatusRunning {
			return nil
		}
		t.Status = task.StatusIdle
		paused = true
		return nil
	})
	if err == nil && paused {
		e.untrack(id)
	}
	e.mu.Unlock()

	if err != nil {
		e.logFailure(ctx, ActionPause, err)
		return nil, err
	}
	if !paused {
		slog.DebugContext(ctx, "task not running, pause ignored", slog.String("status", t.Status.String()))
		return t, nil
	}

	slog.InfoContext(ctx, "task paused")
	e.published(ActionPause)
	return t, nil
}

// ReportOutcome records that a running task finished. outcome must be
// completed or failed; finishedAt becomes the task's last run. Unknown IDs
// fail with TaskNotFoundError before the outcome is considered.
func (e *Engine) ReportOutcome(ctx context.Context, id string, outcome task.Status, finishedAt time.Time) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reportLocked(log.WithAttrs(ctx, slog.String("taskID", id)), id, outcome, finishedAt)
}

func (e *Engine) reportLocked(ctx context.Context, id string, outcome task.Status, finishedAt time.Time) (*task.Task, error) {
	t, err := e.store.Modify(id, func(t *task.Task) error {
		if t.Status != task.StatusRunning {
			return taskerrors.InvalidTransitionError{ID: id, Current: t.Status.String(), Action: ActionReport}
		}
		if !outcome.IsTerminal() {
			return taskerrors.InvalidTransitionError{
				ID:      id,
				Current: t.Status.String(),
				Action:  ActionReport + " " + outcome.String(),
			}
		}
		t.Status = outcome
		t.Schedule.LastRun = &finishedAt
		return nil
	})
	if err != nil {
		e.logFailure(ctx, ActionReport, err)
		return nil, err
	}
	e.untrack(id)

	slog.InfoContext(ctx, "task finished", slog.String("outcome", outcome.String()), slog.Time("finishedAt", finishedAt))
	e.published(outcome.String())
	return t, nil
}

// Remove cancels any run of the task and deletes it. Unknown IDs are ignored.
func (e *Engine) Remove(ctx context.Context, id string) bool {
	e.mu.Lock()
	e.untrack(id)
	removed := e.store.Remove(id)
	e.mu.Unlock()

	ctx = log.WithAttrs(ctx, slog.String("taskID", id))
	if !removed {
		slog.DebugContext(ctx, "remove of unknown task ignored")
		return false
	}

	slog.InfoContext(ctx, "task removed")
	e.published(ActionRemove)
	return true
}

// Running returns the number of runs currently handed to the executor.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

func (e *Engine) published(action string) {
	metrics.Transitions.WithLabelValues(action).Inc()
	metrics.SetTaskCounts(view.Counts(e.store.List()))
}

// logFailure logs err at a level matching its kind: unknown IDs mean the
// caller's view is stale, illegal transitions are expected user noise.
func (e *Engine) logFailure(ctx context.Context, action string, err error) {
	attrs := []any{slog.String("action", action), slog.Any("error", err)}

	var (
		notFound   taskerrors.TaskNotFoundError
		transition taskerrors.InvalidTransitionError
	)
	switch {
	case errors.As(err, &notFound):
		slog.WarnContext(ctx, "task not found, caller view is stale", attrs...)
	case errors.As(err, &transition):
		slog.DebugContext(ctx, "transition rejected", attrs...)
	default:
		slog.InfoContext(ctx, "task operation rejected", attrs...)
	}
}
