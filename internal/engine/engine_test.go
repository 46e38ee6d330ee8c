//nolint:testpackage // Tests require internal access for thorough testing
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	taskerrors "github.com/abatilo/autotask/internal/errors"
	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
	"github.com/abatilo/autotask/internal/validate"
	"github.com/abatilo/autotask/internal/view"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func seeded(t *testing.T, statuses ...task.Status) (*Engine, []string) {
	t.Helper()
	store := storage.NewStore()
	ids := make([]string, len(statuses))
	for i, s := range statuses {
		ids[i] = fmt.Sprintf("t%d", i+1)
		if err := store.Insert(&task.Task{ID: ids[i], Name: "Task " + ids[i], Status: s}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	return New(store, WithClock(clock)), ids
}

func status(t *testing.T, e *Engine, id string) task.Status {
	t.Helper()
	tk, err := e.Store().Get(id)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", id, err)
	}
	return tk.Status
}

func TestRunFromEveryState(t *testing.T) {
	for _, from := range task.Statuses() {
		t.Run(from.String(), func(t *testing.T) {
			e, ids := seeded(t, from)
			got, err := e.Run(context.Background(), ids[0])
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if got.Status != task.StatusRunning {
				t.Errorf("Status = %v, want running", got.Status)
			}
		})
	}
}

func TestPauseOnlyAffectsRunning(t *testing.T) {
	tests := []struct {
		from task.Status
		want task.Status
	}{
		{task.StatusIdle, task.StatusIdle},
		{task.StatusRunning, task.StatusIdle},
		{task.StatusCompleted, task.StatusCompleted},
		{task.StatusFailed, task.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			e, ids := seeded(t, tt.from)
			got, err := e.Pause(context.Background(), ids[0])
			if err != nil {
				t.Fatalf("Pause failed: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v", got.Status, tt.want)
			}
		})
	}
}

func TestRunThenPauseReturnsToIdle(t *testing.T) {
	for _, from := range task.Statuses() {
		t.Run(from.String(), func(t *testing.T) {
			e, ids := seeded(t, from)
			ctx := context.Background()
			if _, err := e.Run(ctx, ids[0]); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if _, err := e.Pause(ctx, ids[0]); err != nil {
				t.Fatalf("Pause failed: %v", err)
			}
			if got := status(t, e, ids[0]); got != task.StatusIdle {
				t.Errorf("Status = %v, want idle", got)
			}
		})
	}
}

func TestScenario(t *testing.T) {
	e, ids := seeded(t, task.StatusIdle, task.StatusRunning)
	ctx := context.Background()

	if _, err := e.Run(ctx, ids[0]); err != nil {
		t.Fatalf("Run(T1) failed: %v", err)
	}
	if _, err := e.Pause(ctx, ids[1]); err != nil {
		t.Fatalf("Pause(T2) failed: %v", err)
	}

	tasks := e.Store().List()
	running := view.Filter(tasks, view.ByStatus(task.StatusRunning))
	idle := view.Filter(tasks, view.ByStatus(task.StatusIdle))

	if len(running) != 1 || running[0].ID != ids[0] {
		t.Errorf("running = %v, want [T1]", running)
	}
	if len(idle) != 1 || idle[0].ID != ids[1] {
		t.Errorf("idle = %v, want [T2]", idle)
	}
}

func TestTransitionsOnUnknownID(t *testing.T) {
	e, _ := seeded(t)
	ctx := context.Background()

	checks := map[string]func() error{
		"run":    func() error { _, err := e.Run(ctx, "missing"); return err },
		"pause":  func() error { _, err := e.Pause(ctx, "missing"); return err },
		"report": func() error { _, err := e.ReportOutcome(ctx, "missing", task.StatusCompleted, fixedNow); return err },
		"update": func() error { _, err := e.Update(ctx, "missing", storage.Patch{}); return err },
	}

	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			var notFound taskerrors.TaskNotFoundError
			if err := fn(); !errors.As(err, &notFound) {
				t.Errorf("error = %v, want TaskNotFoundError", err)
			}
		})
	}
}

func TestReportOutcome(t *testing.T) {
	e, ids := seeded(t, task.StatusRunning, task.StatusRunning)
	ctx := context.Background()
	finished := fixedNow.Add(5 * time.Minute)

	got, err := e.ReportOutcome(ctx, ids[0], task.StatusCompleted, finished)
	if err != nil {
		t.Fatalf("ReportOutcome failed: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("Status = %v, want completed", got.Status)
	}
	if got.Schedule.LastRun == nil || !got.Schedule.LastRun.Equal(finished) {
		t.Errorf("LastRun = %v, want %v", got.Schedule.LastRun, finished)
	}

	got, err = e.ReportOutcome(ctx, ids[1], task.StatusFailed, finished)
	if err != nil {
		t.Fatalf("ReportOutcome failed: %v", err)
	}
	if got.Status != task.StatusFailed {
		t.Errorf("Status = %v, want failed", got.Status)
	}
}

func TestReportOutcomeRequiresRunning(t *testing.T) {
	e, ids := seeded(t, task.StatusIdle, task.StatusCompleted)
	ctx := context.Background()

	for _, id := range ids {
		_, err := e.ReportOutcome(ctx, id, task.StatusCompleted, fixedNow)
		var transition taskerrors.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Errorf("ReportOutcome(%s) error = %v, want InvalidTransitionError", id, err)
		}
	}

	tk, _ := e.Store().Get(ids[0])
	if tk.Schedule.LastRun != nil {
		t.Errorf("LastRun set by rejected outcome: %v", tk.Schedule.LastRun)
	}
}

func TestReportOutcomeRejectsNonTerminal(t *testing.T) {
	for _, outcome := range []task.Status{task.StatusIdle, task.StatusRunning} {
		t.Run(outcome.String(), func(t *testing.T) {
			e, ids := seeded(t, task.StatusRunning)
			_, err := e.ReportOutcome(context.Background(), ids[0], outcome, fixedNow)
			var transition taskerrors.InvalidTransitionError
			if !errors.As(err, &transition) {
				t.Fatalf("error = %v, want InvalidTransitionError", err)
			}
			if transition.Current != task.StatusRunning.String() {
				t.Errorf("Current = %q, want running", transition.Current)
			}
			if got := status(t, e, ids[0]); got != task.StatusRunning {
				t.Errorf("Status = %v, want running", got)
			}
		})
	}
}

func TestReportOutcomeUnknownIDWinsOverOutcome(t *testing.T) {
	e, _ := seeded(t)
	for _, outcome := range []task.Status{task.StatusIdle, task.StatusCompleted} {
		_, err := e.ReportOutcome(context.Background(), "nope", outcome, fixedNow)
		var notFound taskerrors.TaskNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("ReportOutcome(nope, %v) error = %v, want TaskNotFoundError", outcome, err)
		}
	}
}

func TestRemove(t *testing.T) {
	e, ids := seeded(t, task.StatusIdle)
	ctx := context.Background()

	if !e.Remove(ctx, ids[0]) {
		t.Error("Remove = false, want true")
	}
	if e.Remove(ctx, ids[0]) {
		t.Error("Remove of deleted task = true, want false")
	}
	if e.Remove(ctx, "never-existed") {
		t.Error("Remove of unknown task = true, want false")
	}
}

func TestCreate(t *testing.T) {
	e, _ := seeded(t)
	tk, err := e.Create(context.Background(), validate.Input{
		Name:     "Malware Scan",
		Type:     "security",
		Schedule: fixedNow,
		Priority: "critical",
		Repeat:   "daily",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tk.Status != task.StatusIdle {
		t.Errorf("Status = %v, want idle", tk.Status)
	}
	if !e.Store().Exists(tk.ID) {
		t.Errorf("created task %s not in store", tk.ID)
	}
}

// fakeExecutor records started runs so tests can report outcomes later.
type fakeExecutor struct {
	mu      sync.Mutex
	started []startedRun
	err     error
}

type startedRun struct {
	ctx    context.Context
	task   *task.Task
	report ReportFunc
}

func (f *fakeExecutor) Start(ctx context.Context, t *task.Task, report ReportFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, startedRun{ctx: ctx, task: t, report: report})
	return nil
}

func (f *fakeExecutor) last(t *testing.T) startedRun {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.started) == 0 {
		t.Fatal("executor was not started")
	}
	return f.started[len(f.started)-1]
}

func newWithExecutor(t *testing.T, ex Executor) (*Engine, string) {
	t.Helper()
	store := storage.NewStore()
	if err := store.Insert(&task.Task{ID: "t1", Name: "Task t1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return New(store, WithClock(clock), WithExecutor(ex)), "t1"
}

func TestExecutorReportsOutcome(t *testing.T) {
	ex := &fakeExecutor{}
	e, id := newWithExecutor(t, ex)
	ctx := context.Background()

	if _, err := e.Run(ctx, id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if e.Running() != 1 {
		t.Errorf("Running = %d, want 1", e.Running())
	}

	r := ex.last(t)
	if r.task.ID != id {
		t.Errorf("executor got task %s, want %s", r.task.ID, id)
	}
	if err := r.report(task.StatusCompleted, fixedNow); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if got := status(t, e, id); got != task.StatusCompleted {
		t.Errorf("Status = %v, want completed", got)
	}
	if r.ctx.Err() == nil {
		t.Error("run context should be released after the outcome")
	}
	if e.Running() != 0 {
		t.Errorf("Running = %d, want 0", e.Running())
	}
}

func TestRunningTwiceStartsOnce(t *testing.T) {
	ex := &fakeExecutor{}
	e, id := newWithExecutor(t, ex)
	ctx := context.Background()

	_, _ = e.Run(ctx, id)
	_, _ = e.Run(ctx, id)

	if len(ex.started) != 1 {
		t.Errorf("executor started %d times, want 1", len(ex.started))
	}
}

func TestPauseCancelsRunAndRejectsLateOutcome(t *testing.T) {
	ex := &fakeExecutor{}
	e, id := newWithExecutor(t, ex)
	ctx := context.Background()

	_, _ = e.Run(ctx, id)
	first := ex.last(t)

	if _, err := e.Pause(ctx, id); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if first.ctx.Err() == nil {
		t.Error("pause should cancel the run context")
	}

	// Rerun, then let the first (superseded) run report.
	_, _ = e.Run(ctx, id)
	err := first.report(task.StatusFailed, fixedNow)
	var transition taskerrors.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("stale report error = %v, want InvalidTransitionError", err)
	}
	if transition.Current != task.StatusRunning.String() {
		t.Errorf("stale report Current = %q, want the task's real status", transition.Current)
	}
	if got := status(t, e, id); got != task.StatusRunning {
		t.Errorf("Status = %v, want running", got)
	}

	if err := ex.last(t).report(task.StatusCompleted, fixedNow); err != nil {
		t.Errorf("current run report failed: %v", err)
	}
}

func TestRemoveCancelsRun(t *testing.T) {
	ex := &fakeExecutor{}
	e, id := newWithExecutor(t, ex)
	ctx := context.Background()

	_, _ = e.Run(ctx, id)
	r := ex.last(t)
	e.Remove(ctx, id)

	if r.ctx.Err() == nil {
		t.Error("remove should cancel the run context")
	}
	if err := r.report(task.StatusCompleted, fixedNow); err == nil {
		t.Error("report after remove should fail")
	}
}

func TestExecutorStartFailureMarksFailed(t *testing.T) {
	ex := &fakeExecutor{err: errors.New("no capacity")}
	e, id := newWithExecutor(t, ex)

	if _, err := e.Run(context.Background(), id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := status(t, e, id); got != task.StatusFailed {
		t.Errorf("Status = %v, want failed", got)
	}
}

func TestConcurrentRunPause(t *testing.T) {
	e, ids := seeded(t, task.StatusIdle, task.StatusIdle, task.StatusIdle, task.StatusIdle)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%len(ids)]
			if i%2 == 0 {
				_, _ = e.Run(ctx, id)
			} else {
				_, _ = e.Pause(ctx, id)
			}
			_ = view.Filter(e.Store().List(), view.All())
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if s := status(t, e, id); s != task.StatusIdle && s != task.StatusRunning {
			t.Errorf("task %s ended in %v", id, s)
		}
	}
}
