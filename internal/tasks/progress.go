package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/shared"
)

// Broadcasts are cheap and frequent; durable progress writes are batched at
// a coarser cadence.
const (
	defaultReportPercent  = 5
	defaultPersistPercent = 10
	reportInterval        = 10 * time.Second
)

// Snapshot represents a progress event during a cleanup job.
//
// Used to send real-time updates to the CLI or UI layer for display and to
// the progress sink for broadcast to clients.
type Snapshot struct {
	JobID     string // Owning job
	Percent   int    // Completion percentage (0-100)
	Processed int    // Tracks processed so far
	Total     int    // Total tracks in the source playlist
	Batch     string // Human-readable batch label, e.g. "Processing tracks 41-60"
	Message   string // Human-readable message for display
	TrackName string // Track being processed, if any
	Done      bool   // Terminal snapshot for a completed job
	Failed    bool   // Terminal snapshot for a failed job
}

// Broadcaster delivers progress snapshots to external clients.
//
// Delivery is best-effort: implementations must not block job execution and
// failures are never surfaced to the pipeline.
type Broadcaster interface {
	Broadcast(jobID string, s Snapshot)
}

// ProgressTracker decides when a job should report or persist progress.
//
// Batch size scales with playlist length so that roughly twenty report
// signals are produced whether the playlist has ten tracks or ten thousand.
// A wall-clock interval guarantees liveness when individual tracks are slow.
type ProgressTracker struct {
	total        int
	reportEvery  int
	persistEvery int
	lastReport   time.Time
	now          func() time.Time
}

// TrackerOption configures a ProgressTracker.
type TrackerOption func(*ProgressTracker)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *ProgressTracker) { t.now = now }
}

// NewProgressTracker creates a tracker for a playlist of totalTracks tracks.
//
// reportPercent and persistPercent size the report and persist batches as a
// share of the playlist; zero values take the defaults (5% and 10%). The
// persist cadence is never finer than the report cadence. A non-positive
// totalTracks is a precondition violation.
func NewProgressTracker(totalTracks, reportPercent, persistPercent int, opts ...TrackerOption) (*ProgressTracker, error) {
	if totalTracks <= 0 {
		return nil, fmt.Errorf("%w: total tracks must be positive, got %d", shared.ErrInvalidArgument, totalTracks)
	}
	if reportPercent <= 0 {
		reportPercent = defaultReportPercent
	}
	if persistPercent <= 0 {
		persistPercent = defaultPersistPercent
	}
	if persistPercent < reportPercent {
		persistPercent = reportPercent
	}

	t := &ProgressTracker{
		total:        totalTracks,
		reportEvery:  batchSize(totalTracks, reportPercent),
		persistEvery: batchSize(totalTracks, persistPercent),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.lastReport = t.now()
	return t, nil
}

// batchSize computes the track-count threshold for the given percentage,
// never smaller than one track.
func batchSize(total, percent int) int {
	size := total * percent / 100
	if size < 1 {
		size = 1
	}
	return size
}

// Total returns the configured track count.
func (t *ProgressTracker) Total() int { return t.total }

// checkIndex fails loudly on an out-of-range index; callers iterate
// sequentially so an invalid index is a programming error.
func (t *ProgressTracker) checkIndex(index int) {
	if index < 0 || index > t.total {
		panic(fmt.Sprintf("progress index %d outside [0, %d]", index, t.total))
	}
}

// ShouldReport returns true when a progress snapshot should be broadcast:
// at the start and end of the job, at each batch boundary, or when more
// than the report interval has elapsed since the last report.
func (t *ProgressTracker) ShouldReport(index int) bool {
	t.checkIndex(index)

	report := index == 0 ||
		index == t.total ||
		index%t.reportEvery == 0 ||
		t.now().Sub(t.lastReport) > reportInterval

	if report {
		t.lastReport = t.now()
	}
	return report
}

// ShouldPersist returns true when job counters should be written durably.
// Persistence uses a coarser threshold than reporting.
func (t *ProgressTracker) ShouldPersist(index int) bool {
	t.checkIndex(index)
	return index == t.total || (index > 0 && index%t.persistEvery == 0)
}

// Snapshot builds a progress snapshot for the given index. currentTrack may
// be empty at the start and end of the job.
func (t *ProgressTracker) Snapshot(index int, currentTrack string) Snapshot {
	t.checkIndex(index)

	s := Snapshot{
		Percent:   percentComplete(index, t.total),
		Processed: index,
		Total:     t.total,
		Batch:     t.batchLabel(index),
		TrackName: currentTrack,
	}

	switch {
	case index == 0:
		s.Message = "Initializing..."
	case index == t.total:
		s.Message = "Finalizing..."
	default:
		s.Message = fmt.Sprintf("Processing: %s", currentTrack)
	}

	return s
}

// percentComplete is zero at the start and floor(index/total*100) otherwise.
func percentComplete(index, total int) int {
	if index == 0 {
		return 0
	}
	return index * 100 / total
}

// batchLabel renders the 1-based track range of the batch containing index.
func (t *ProgressTracker) batchLabel(index int) string {
	if index == 0 {
		return fmt.Sprintf("Processing tracks 1-%d", min(t.reportEvery, t.total))
	}

	start := ((index - 1) / t.reportEvery) * t.reportEvery
	end := min(start+t.reportEvery, t.total)
	return fmt.Sprintf("Processing tracks %d-%d", start+1, end)
}
