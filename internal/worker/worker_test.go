package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/tasks"
)

type fakeJobQueue struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
}

func (q *fakeJobQueue) ListPending(ctx context.Context, limit int) ([]*models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	return q.jobs, nil
}

type fakeSyncQueue struct {
	mu      sync.Mutex
	configs []*models.SyncConfig
}

func (q *fakeSyncQueue) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.SyncConfig, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.configs, nil
}

type fakeRunner struct {
	mu        sync.Mutex
	jobRuns   map[string]int
	syncRuns  map[string]int
	block     chan struct{} // when set, runs wait here
	snapshots bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{jobRuns: make(map[string]int), syncRuns: make(map[string]int)}
}

func (r *fakeRunner) ProcessJob(ctx context.Context, jobID string, progress chan<- tasks.Snapshot) error {
	r.mu.Lock()
	r.jobRuns[jobID]++
	r.mu.Unlock()
	if r.snapshots && progress != nil {
		progress <- tasks.Snapshot{JobID: jobID, Done: true}
	}
	if r.block != nil {
		<-r.block
	}
	return nil
}

func (r *fakeRunner) RunSync(ctx context.Context, config *models.SyncConfig) (*tasks.SyncResult, error) {
	r.mu.Lock()
	r.syncRuns[config.ID()]++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return &tasks.SyncResult{}, nil
}

func (r *fakeRunner) jobCount(jobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobRuns[jobID]
}

func (r *fakeRunner) syncCount(configID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncRuns[configID]
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []tasks.Snapshot
}

func (s *recordingSink) Broadcast(jobID string, snap tasks.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func quietLogger() *log.Logger {
	logger := log.New(nil)
	logger.SetLevel(log.FatalLevel)
	return logger
}

func pendingJob(id string) *models.Job {
	job := models.NewJob(1, "user1", "src1", "Playlist")
	job.SetID(id)
	return job
}

func dueConfig(id string) *models.SyncConfig {
	job := pendingJob("job-" + id)
	job.SetTargetPlaylist("tgt1", "Playlist (Clean)")
	config := models.NewSyncConfig(1, job, models.FrequencyDaily)
	config.SetID(id)
	return config
}

func TestTickRunsPendingWork(t *testing.T) {
	runner := newFakeRunner()
	jobs := &fakeJobQueue{jobs: []*models.Job{pendingJob("j1"), pendingJob("j2")}}
	syncs := &fakeSyncQueue{configs: []*models.SyncConfig{dueConfig("c1")}}

	w := New(jobs, syncs, runner, runner, quietLogger(), time.Minute, 4)
	w.Tick(context.Background())
	w.wg.Wait()

	if runner.jobCount("j1") != 1 || runner.jobCount("j2") != 1 {
		t.Errorf("expected each job run once, got j1=%d j2=%d", runner.jobCount("j1"), runner.jobCount("j2"))
	}
	if runner.syncCount("c1") != 1 {
		t.Errorf("expected sync run once, got %d", runner.syncCount("c1"))
	}
}

func TestTickSkipsRunningEntities(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	jobs := &fakeJobQueue{jobs: []*models.Job{pendingJob("j1")}}
	syncs := &fakeSyncQueue{}

	w := New(jobs, syncs, runner, runner, quietLogger(), time.Minute, 4)

	w.Tick(context.Background())
	// Second tick while the first run is still blocked.
	for i := 0; i < 50 && runner.jobCount("j1") == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	w.Tick(context.Background())

	close(runner.block)
	w.wg.Wait()

	if got := runner.jobCount("j1"); got != 1 {
		t.Errorf("expected job run once despite overlapping ticks, got %d", got)
	}
}

func TestTickListErrorDoesNotBlockSyncs(t *testing.T) {
	runner := newFakeRunner()
	jobs := &fakeJobQueue{err: errors.New("db locked")}
	syncs := &fakeSyncQueue{configs: []*models.SyncConfig{dueConfig("c1")}}

	w := New(jobs, syncs, runner, runner, quietLogger(), time.Minute, 4)
	w.Tick(context.Background())
	w.wg.Wait()

	if runner.syncCount("c1") != 1 {
		t.Errorf("expected sync still dispatched, got %d", runner.syncCount("c1"))
	}
}

func TestTickRespectsCancelledContext(t *testing.T) {
	runner := newFakeRunner()
	jobs := &fakeJobQueue{jobs: []*models.Job{pendingJob("j1")}}

	w := New(jobs, &fakeSyncQueue{}, runner, runner, quietLogger(), time.Minute, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Tick(ctx)
	w.wg.Wait()

	if runner.jobCount("j1") != 0 {
		t.Error("expected no work dispatched after cancellation")
	}
}

func TestProgressForwardedToBroadcaster(t *testing.T) {
	runner := newFakeRunner()
	runner.snapshots = true
	sink := &recordingSink{}
	jobs := &fakeJobQueue{jobs: []*models.Job{pendingJob("j1")}}

	w := New(jobs, &fakeSyncQueue{}, runner, runner, quietLogger(), time.Minute, 4,
		WithBroadcaster(sink))
	w.Tick(context.Background())
	w.wg.Wait()

	if sink.count() != 1 {
		t.Errorf("expected one forwarded snapshot, got %d", sink.count())
	}
}

func TestStartAndStop(t *testing.T) {
	runner := newFakeRunner()
	jobs := &fakeJobQueue{jobs: []*models.Job{pendingJob("j1")}}

	w := New(jobs, &fakeSyncQueue{}, runner, runner, quietLogger(), time.Hour, 2)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected second start to fail")
	}
	w.Stop()

	// Start drains immediately without waiting for the first interval.
	if runner.jobCount("j1") != 1 {
		t.Errorf("expected initial drain to run the job, got %d", runner.jobCount("j1"))
	}
}
