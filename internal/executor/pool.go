package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/abatilo/autotask/internal/engine"
	"github.com/abatilo/autotask/internal/log"
	"github.com/abatilo/autotask/internal/task"
)

// Handler performs the work of one task type.
type Handler interface {
	Handle(ctx context.Context, t *task.Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t *task.Task) error

// Handle calls f(ctx, t).
func (f HandlerFunc) Handle(ctx context.Context, t *task.Task) error {
	return f(ctx, t)
}

// Pool runs tasks on goroutines, at most parallelism at a time.
type Pool struct {
	handlersMutex sync.RWMutex
	handlers      map[task.Type]Handler

	semaphore chan struct{}
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewPool creates a Pool running at most parallelism tasks at once.
// Values below 1 are raised to 1.
func NewPool(parallelism int) *Pool {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pool{
		handlers:  make(map[task.Type]Handler),
		semaphore: make(chan struct{}, parallelism),
		now:       time.Now,
	}
}

// Register sets the handler for a task type.
func (p *Pool) Register(taskType task.Type, handler Handler) {
	p.handlersMutex.Lock()
	defer p.handlersMutex.Unlock()
	p.handlers[taskType] = handler
}

// Start implements engine.Executor.
func (p *Pool) Start(ctx context.Context, t *task.Task, report engine.ReportFunc) error {
	p.handlersMutex.RLock()
	handler, exists := p.handlers[t.Type]
	p.handlersMutex.RUnlock()

	if !exists {
		return errors.Errorf("no handler registered for task type '%s'", t.Type)
	}

	ctx = log.WithAttrs(ctx,
		slog.String("taskID", t.ID),
		slog.String("taskType", t.Type.String()),
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				err, ok := recovered.(error)
				if !ok {
					err = errors.Errorf("%+v", recovered)
				}

				slog.ErrorContext(ctx, "recovered panic while running task", slog.Any("error", errors.WithStack(err)))
				p.report(ctx, report, task.StatusFailed)
			}
		}()

		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() {
			<-p.semaphore
		}()

		slog.DebugContext(ctx, "executing task")

		err := handler.Handle(ctx, t)
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "task run cancelled")
			return
		}

		if err != nil {
			slog.WarnContext(ctx, "task failed", slog.Any("error", errors.WithStack(err)))
			p.report(ctx, report, task.StatusFailed)
			return
		}

		p.report(ctx, report, task.StatusCompleted)
	}()

	return nil
}

func (p *Pool) report(ctx context.Context, report engine.ReportFunc, outcome task.Status) {
	if err := report(outcome, p.now()); err != nil {
		slog.DebugContext(ctx, "outcome not recorded", slog.Any("error", err))
	}
}

// Wait blocks until every started run has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Delay returns a handler that simulates work by waiting d.
func Delay(d time.Duration) HandlerFunc {
	return func(ctx context.Context, _ *task.Task) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		}
	}
}

var _ engine.Executor = &Pool{}
