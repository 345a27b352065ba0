// Package worker runs the background daemon that drains pending cleanup
// jobs and fires due playlist syncs.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/tasks"
	"github.com/robfig/cron/v3"
)

const defaultClaimLimit = 16

// JobQueue lists cleanup jobs waiting to be processed.
type JobQueue interface {
	ListPending(ctx context.Context, limit int) ([]*models.Job, error)
}

// SyncQueue lists sync configs whose schedule has come due.
type SyncQueue interface {
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.SyncConfig, error)
}

// JobRunner executes one cleanup job.
type JobRunner interface {
	ProcessJob(ctx context.Context, jobID string, progress chan<- tasks.Snapshot) error
}

// SyncRunner executes one sync run.
type SyncRunner interface {
	RunSync(ctx context.Context, config *models.SyncConfig) (*tasks.SyncResult, error)
}

// Worker polls for runnable work on a fixed interval and dispatches it to
// a bounded pool. A job or sync is never run concurrently with itself:
// entities are locked by ID for the duration of their run, and a tick that
// finds an entity still running simply skips it.
type Worker struct {
	jobs   JobQueue
	syncs  SyncQueue
	engine JobRunner
	syncer SyncRunner
	logger *log.Logger
	sink   tasks.Broadcaster

	pollInterval time.Duration
	maxParallel  int

	scheduler *cron.Cron
	sem       chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithBroadcaster attaches a progress sink for running jobs.
func WithBroadcaster(sink tasks.Broadcaster) Option {
	return func(w *Worker) { w.sink = sink }
}

// New creates a Worker polling at pollInterval with at most maxParallel
// concurrent runs.
func New(jobs JobQueue, syncs SyncQueue, engine JobRunner, syncer SyncRunner, logger *log.Logger, pollInterval time.Duration, maxParallel int, opts ...Option) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}

	w := &Worker{
		jobs:         jobs,
		syncs:        syncs,
		engine:       engine,
		syncer:       syncer,
		logger:       logger,
		pollInterval: pollInterval,
		maxParallel:  maxParallel,
		sem:          make(chan struct{}, maxParallel),
		inflight:     make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins polling. It returns once the scheduler is running; work
// happens on background goroutines until Stop is called or ctx is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if w.scheduler != nil {
		return fmt.Errorf("worker already started")
	}

	w.scheduler = cron.New()
	spec := fmt.Sprintf("@every %s", w.pollInterval)
	if _, err := w.scheduler.AddFunc(spec, func() { w.Tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule poll: %w", err)
	}

	w.logger.Info("worker started",
		"poll_interval", w.pollInterval, "max_parallel", w.maxParallel)

	w.scheduler.Start()

	// Drain anything already waiting instead of sleeping out the first interval.
	w.Tick(ctx)
	return nil
}

// Stop halts polling and waits for in-flight runs to finish.
func (w *Worker) Stop() {
	if w.scheduler != nil {
		stopCtx := w.scheduler.Stop()
		<-stopCtx.Done()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Tick claims runnable work once. Exported so the CLI can run a single
// drain pass without the daemon.
func (w *Worker) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	pending, err := w.jobs.ListPending(ctx, defaultClaimLimit)
	if err != nil {
		w.logger.Error("failed to list pending jobs", "err", err)
	}
	for _, job := range pending {
		w.dispatchJob(ctx, job.ID())
	}

	due, err := w.syncs.ListDueBefore(ctx, time.Now())
	if err != nil {
		w.logger.Error("failed to list due syncs", "err", err)
	}
	for _, config := range due {
		w.dispatchSync(ctx, config)
	}
}

func (w *Worker) dispatchJob(ctx context.Context, jobID string) {
	if !w.acquire("job:" + jobID) {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.release("job:" + jobID)

		w.sem <- struct{}{}
		defer func() { <-w.sem }()

		progress := w.progressChannel(jobID)
		if err := w.engine.ProcessJob(ctx, jobID, progress); err != nil {
			w.logger.Error("job run failed", "job_id", jobID, "err", err)
		}
		if progress != nil {
			close(progress)
		}
	}()
}

func (w *Worker) dispatchSync(ctx context.Context, config *models.SyncConfig) {
	if !w.acquire("sync:" + config.ID()) {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.release("sync:" + config.ID())

		w.sem <- struct{}{}
		defer func() { <-w.sem }()

		if _, err := w.syncer.RunSync(ctx, config); err != nil {
			w.logger.Error("sync run failed", "config_id", config.ID(), "err", err)
		}
	}()
}

// progressChannel forwards job snapshots to the broadcaster, if attached.
func (w *Worker) progressChannel(jobID string) chan tasks.Snapshot {
	if w.sink == nil {
		return nil
	}

	progress := make(chan tasks.Snapshot, 64)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for s := range progress {
			w.sink.Broadcast(jobID, s)
		}
	}()
	return progress
}

// acquire takes the per-entity lock, returning false if the entity is
// already running.
func (w *Worker) acquire(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, running := w.inflight[key]; running {
		return false
	}
	w.inflight[key] = struct{}{}
	return true
}

func (w *Worker) release(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, key)
}
