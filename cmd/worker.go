package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/cleanify/internal/worker"
	"github.com/urfave/cli/v3"
)

// WorkerRun runs the background worker daemon until interrupted.
//
// The worker polls for pending cleanup jobs and due syncs on a fixed
// interval and dispatches them to a bounded pool.
func (r *Runner) WorkerRun(ctx context.Context, cmd *cli.Command) error {
	intervalStr := cmd.String("interval")
	if intervalStr == "" {
		intervalStr = r.config.Worker.PollInterval
	}

	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", intervalStr, err)
	}

	parallel := int(cmd.Int("parallel"))
	if parallel <= 0 {
		parallel = r.config.Worker.MaxParallel
	}

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	engine, err := r.cleanupEngine(s)
	if err != nil {
		return err
	}

	syncer, err := r.syncEngine(s)
	if err != nil {
		return err
	}

	w := worker.New(s.jobs, s.configs, engine, syncer, r.logger, interval, parallel)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Start(runCtx); err != nil {
		return err
	}

	r.logger.Info("worker started", "interval", interval, "parallel", parallel)
	r.writePlain("Worker running (poll every %s, up to %d parallel). Ctrl+C to stop.\n", interval, parallel)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		r.logger.Info("shutting down", "signal", sig)
	case <-runCtx.Done():
	}

	cancel()
	w.Stop()

	r.writePlain("Worker stopped.\n")
	return nil
}
