// Package worker runs archive indexing tasks taken off the redis queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/docqa/internal/tasks"
)

type Config struct {
	Concurrency     int
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		ShutdownTimeout: 30 * time.Second,
	}
}

type Worker struct {
	config  Config
	rdb     redis.UniversalClient
	handler *tasks.IndexArchiveHandler
}

// New creates a worker consuming tasks from rdb. The redis client is
// shared and not closed by the worker.
func New(config Config, rdb redis.UniversalClient, handler *tasks.IndexArchiveHandler) *Worker {
	def := DefaultConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	return &Worker{
		config:  config,
		rdb:     rdb,
		handler: handler,
	}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	srv := asynq.NewServerFromRedisClient(
		w.rdb,
		asynq.Config{
			Concurrency:     w.config.Concurrency,
			ShutdownTimeout: w.config.ShutdownTimeout,
			Logger:          logger{},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				slog.Error("task failed", "type", t.Type(), "retried", retried, "max_retry", maxRetry, "err", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeIndexArchive, w.handler)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	slog.Info("Worker started", "concurrency", w.config.Concurrency)

	<-ctx.Done()
	slog.Info("Worker shutting down")
	srv.Shutdown()
	return nil
}

// logger routes asynq's own messages through slog.
type logger struct{}

func (logger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (logger) Info(args ...any)  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (logger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (logger) Error(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
func (logger) Fatal(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
