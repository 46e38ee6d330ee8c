package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/abatilo/autotask/internal/engine"
	"github.com/abatilo/autotask/internal/executor"
	"github.com/abatilo/autotask/internal/metrics"
	"github.com/abatilo/autotask/internal/seed"
	"github.com/abatilo/autotask/internal/shell"
	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
	"github.com/abatilo/autotask/internal/view"
)

const shutdownTimeout = 5 * time.Second

// shellCmd implements 'autotask shell'.
func shellCmd() *cobra.Command {
	var seedFile string
	var demo bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive task session",
		Long: `Start an interactive task session backed by an in-memory registry.

Tasks started with 'run' complete after the configured simulated delay
(AUTOTASK_EXECUTOR_DELAY). Nothing is persisted when the session ends.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if seedFile == "" {
				seedFile = conf.Seed.File
			}
			store := storage.NewStore()
			if err := preload(store, seedFile, demo || conf.Seed.Demo); err != nil {
				printError(err)
			}
			metrics.SetTaskCounts(view.Counts(store.List()))

			pool := executor.NewPool(conf.Executor.Parallelism)
			for _, taskType := range task.Types() {
				pool.Register(taskType, executor.Delay(conf.Executor.Delay))
			}
			e := engine.New(store, engine.WithExecutor(pool))

			if conf.Metrics.Address != "" {
				srv := serveMetrics(ctx, conf.Metrics.Address)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
					defer shutdownCancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						slog.WarnContext(ctx, "could not stop metrics server", slog.Any("error", err))
					}
				}()
			}

			sh := shell.New(e, os.Stdin, os.Stdout)
			sh.Formatter = formatter
			sh.Prompt = "autotask> "
			err := sh.Run(ctx)

			cancel()
			pool.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				printError(err)
			}
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML file of tasks to preload")
	cmd.Flags().BoolVar(&demo, "demo", false, "Preload the bundled demo tasks")
	return cmd
}

func preload(store *storage.Store, seedFile string, demo bool) error {
	now := time.Now()
	if demo {
		tasks, err := seed.Demo(now)
		if err != nil {
			return err
		}
		if err := seed.Apply(store, tasks); err != nil {
			return err
		}
	}
	if seedFile != "" {
		tasks, err := seed.LoadFile(seedFile, now)
		if err != nil {
			return err
		}
		if err := seed.Apply(store, tasks); err != nil {
			return err
		}
	}
	slog.Info("store preloaded", slog.Int("tasks", store.Len()))
	return nil
}

func serveMetrics(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		slog.InfoContext(ctx, "serving metrics", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "metrics server failed", slog.Any("error", errors.WithStack(err)))
		}
	}()

	return srv
}
