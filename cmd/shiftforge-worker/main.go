package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/app"
	"github.com/shiftforge/scheduler/internal/scheduling/application/commands"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/pkg/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("starting shiftforge worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	var container *app.Container
	if cfg.IsLocalMode() {
		logger.Info("starting in local mode with SQLite", "database", cfg.SQLitePath)
		container, err = app.NewLocalContainer(ctx, cfg, logger)
	} else {
		container, err = app.NewContainer(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if container.OutboxProcessor != nil {
		if err := container.OutboxProcessor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			os.Exit(1)
		}
		defer container.OutboxProcessor.Stop()
		logger.Info("outbox processor started")
	}

	w := &runWorker{
		runRepo:        container.RunRepo,
		executeHandler: container.ExecuteHandler,
		logger:         logger,
		concurrency:    cfg.WorkerConcurrency,
		solveConfig:    solver.DefaultConfig(),
	}
	go w.pollLoop(ctx, cfg.WorkerPollInterval)

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg.WorkerHealthAddr, w, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down worker")
	w.wait()
	logger.Info("worker stopped")
}

// runWorker polls RunRepository.FindPending and drives each claimed run
// through ExecuteHandler, bounding how many solves run at once with a
// buffered semaphore channel.
type runWorker struct {
	runRepo        domain.RunRepository
	executeHandler *commands.ExecuteHandler
	logger         *slog.Logger
	concurrency    int
	solveConfig    solver.Config

	inFlight int64
	claimed  int64
	failed   int64
}

func (w *runWorker) pollLoop(ctx context.Context, interval time.Duration) {
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	sem := make(chan struct{}, w.concurrency)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.claimBatch(ctx, sem)
		}
	}
}

func (w *runWorker) claimBatch(ctx context.Context, sem chan struct{}) {
	free := cap(sem) - len(sem)
	if free <= 0 {
		return
	}

	runs, err := w.runRepo.FindPending(ctx, free)
	if err != nil {
		w.logger.Error("failed to list pending runs", "error", err)
		return
	}

	for _, run := range runs {
		sem <- struct{}{}
		atomic.AddInt64(&w.inFlight, 1)
		atomic.AddInt64(&w.claimed, 1)
		go func(runID uuid.UUID) {
			defer func() {
				<-sem
				atomic.AddInt64(&w.inFlight, -1)
			}()
			w.execute(ctx, runID)
		}(run.ID())
	}
}

func (w *runWorker) execute(ctx context.Context, runID uuid.UUID) {
	result, err := w.executeHandler.Handle(ctx, commands.ExecuteCommand{RunID: runID, Config: w.solveConfig})
	if err != nil {
		atomic.AddInt64(&w.failed, 1)
		w.logger.Error("solve failed", "run_id", runID, "error", err)
		return
	}
	w.logger.Info("solve finished", "run_id", runID, "status", result.Status)
}

func (w *runWorker) wait() {
	for atomic.LoadInt64(&w.inFlight) > 0 {
		time.Sleep(50 * time.Millisecond)
	}
}

func startHealthServer(ctx context.Context, addr string, w *runWorker, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"status":    "ok",
			"in_flight": atomic.LoadInt64(&w.inFlight),
			"claimed":   atomic.LoadInt64(&w.claimed),
			"failed":    atomic.LoadInt64(&w.failed),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(response)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}
