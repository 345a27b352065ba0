package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/services"
	"github.com/desertthunder/cleanify/internal/shared"
)

const (
	// resolveWorkers bounds parallel catalog searches within one batch.
	resolveWorkers = 4
	// cleanPlaylistSuffix names the generated target playlist.
	cleanPlaylistSuffix = " (Clean)"
)

// JobStore is the persistence surface the pipeline needs for jobs.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
}

// MappingStore is the persistence surface for track mappings.
type MappingStore interface {
	Create(ctx context.Context, mapping *models.TrackMapping) error
	ListByJob(ctx context.Context, jobID string) ([]*models.TrackMapping, error)
	ExistsForTrack(ctx context.Context, jobID, sourceTrackID string) (bool, error)
}

// CleanupEngine runs cleanup jobs end to end: fetch the source playlist,
// resolve every track to a clean alternative, create the target playlist
// and populate it, persisting progress along the way.
type CleanupEngine struct {
	jobs     JobStore
	mappings MappingStore
	service  services.Service
	matcher  *TrackMatcher
	logger   *log.Logger

	reportPercent  int
	persistPercent int
}

// EngineOption configures a CleanupEngine.
type EngineOption func(*CleanupEngine)

// WithReportCadence overrides the default progress cadence, mainly for tests.
func WithReportCadence(reportPercent, persistPercent int) EngineOption {
	return func(e *CleanupEngine) {
		e.reportPercent = reportPercent
		e.persistPercent = persistPercent
	}
}

// NewCleanupEngine wires the pipeline's dependencies.
func NewCleanupEngine(jobs JobStore, mappings MappingStore, service services.Service, matcher *TrackMatcher, logger *log.Logger, opts ...EngineOption) *CleanupEngine {
	e := &CleanupEngine{
		jobs:           jobs,
		mappings:       mappings,
		service:        service,
		matcher:        matcher,
		logger:         logger,
		reportPercent:  defaultReportPercent,
		persistPercent: defaultPersistPercent,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ProcessJob executes one cleanup job. Progress snapshots are sent on the
// channel without blocking; a slow or absent consumer never stalls the run.
//
// A failed job can be processed again: counters reset and the run starts
// over from the first track.
func (e *CleanupEngine) ProcessJob(ctx context.Context, jobID string, progress chan<- Snapshot) error {
	job, err := e.claimJob(ctx, jobID)
	if err != nil {
		return err
	}

	e.logger.Info("processing cleanup job",
		"job_id", job.ID(), "playlist", job.SourcePlaylistName())

	tracks, err := e.service.ListPlaylistTracks(ctx, job.SourcePlaylistID())
	if err != nil {
		return e.failJob(ctx, job, progress, fmt.Errorf("fetching source playlist: %w", err))
	}

	tracks = dedupeTracks(tracks)
	if len(tracks) == 0 {
		return e.failJob(ctx, job, progress, fmt.Errorf("source playlist %q has no tracks", job.SourcePlaylistName()))
	}

	job.SetTotalTracks(len(tracks))
	if err := e.jobs.Update(ctx, job); err != nil {
		return e.failJob(ctx, job, progress, fmt.Errorf("persisting track count: %w", err))
	}

	tracker, err := NewProgressTracker(len(tracks), e.reportPercent, e.persistPercent)
	if err != nil {
		return e.failJob(ctx, job, progress, err)
	}

	e.sendProgress(progress, e.snapshotFor(job, tracker, 0, ""))

	mappings, err := e.resolveAll(ctx, job, tracks, tracker, progress)
	if err != nil {
		return e.failJob(ctx, job, progress, err)
	}

	e.sendProgress(progress, e.snapshotFor(job, tracker, len(tracks), ""))

	if err := e.publishCleanPlaylist(ctx, job, mappings); err != nil {
		return e.failJob(ctx, job, progress, err)
	}

	if err := job.Transition(models.JobCompleted); err != nil {
		return err
	}
	job.SetCurrentBatch("")
	if err := e.jobs.Update(ctx, job); err != nil {
		return err
	}

	final := e.snapshotFor(job, tracker, len(tracks), "")
	final.Done = true
	final.Message = fmt.Sprintf("Created %q with %d tracks", job.TargetPlaylistName(), job.MatchedTracks())
	e.sendProgress(progress, final)

	e.logger.Info("cleanup job completed",
		"job_id", job.ID(),
		"total", job.TotalTracks(),
		"matched", job.MatchedTracks())

	return nil
}

// claimJob loads the job and moves it into processing, resetting counters
// so a restarted failed job begins from zero.
func (e *CleanupEngine) claimJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status().CanTransition(models.JobProcessing) {
		return nil, fmt.Errorf("%w: job %s is %s", shared.ErrJobNotRunnable, jobID, job.Status())
	}

	restarted := job.Status() == models.JobFailed
	if err := job.Transition(models.JobProcessing); err != nil {
		return nil, err
	}

	job.SetProcessedTracks(0)
	job.SetMatchedTracks(0)
	job.SetTotalTracks(0)
	job.SetErrorMessage("")
	job.SetCurrentBatch("")

	if err := e.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	if restarted {
		e.logger.Info("restarting failed job from the beginning", "job_id", jobID)
	}

	return job, nil
}

// resolveAll walks the source tracks batch by batch. Within a batch,
// catalog searches run on a small worker pool; results re-serialize into
// source order before anything is persisted, so mapping rows and counters
// always reflect a contiguous prefix of the playlist.
func (e *CleanupEngine) resolveAll(ctx context.Context, job *models.Job, tracks []models.Track, tracker *ProgressTracker, progress chan<- Snapshot) ([]*models.TrackMapping, error) {
	existing, err := e.mappings.ListByJob(ctx, job.ID())
	if err != nil {
		return nil, fmt.Errorf("loading existing mappings: %w", err)
	}
	resolved := make(map[string]*models.TrackMapping, len(existing))
	for _, m := range existing {
		resolved[m.SourceTrackID()] = m
	}

	all := make([]*models.TrackMapping, 0, len(tracks))
	processed := 0
	matched := 0

	batch := batchSize(len(tracks), e.reportPercent)
	for start := 0; start < len(tracks); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("job interrupted: %w", err)
		}

		end := min(start+batch, len(tracks))
		results, err := e.resolveBatch(ctx, job.ID(), tracks[start:end], resolved)
		if err != nil {
			return nil, fmt.Errorf("resolving tracks: %w", err)
		}

		for i, mapping := range results {
			index := start + i

			if _, known := resolved[mapping.SourceTrackID()]; !known {
				exists, err := e.mappings.ExistsForTrack(ctx, job.ID(), mapping.SourceTrackID())
				if err != nil {
					return nil, fmt.Errorf("checking mapping for %q: %w", mapping.SourceTrackName(), err)
				}
				if !exists {
					if err := e.mappings.Create(ctx, mapping); err != nil {
						return nil, fmt.Errorf("persisting mapping for %q: %w", mapping.SourceTrackName(), err)
					}
				}
				resolved[mapping.SourceTrackID()] = mapping
			}
			all = append(all, resolved[mapping.SourceTrackID()])

			processed = index + 1
			if resolved[mapping.SourceTrackID()].HasCleanMatch() {
				matched++
			}

			if tracker.ShouldReport(processed) {
				e.sendProgress(progress, e.snapshotFor(job, tracker, processed, tracks[index].Title))
			}
			if tracker.ShouldPersist(processed) {
				job.SetProcessedTracks(processed)
				job.SetMatchedTracks(matched)
				job.SetCurrentBatch(tracker.batchLabel(processed))
				if err := e.jobs.Update(ctx, job); err != nil {
					return nil, fmt.Errorf("persisting progress: %w", err)
				}
			}
		}
	}

	job.SetProcessedTracks(processed)
	job.SetMatchedTracks(matched)
	if err := e.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persisting final counters: %w", err)
	}

	return all, nil
}

// resolveBatch fans the batch out over resolveWorkers goroutines and
// returns the mappings in the batch's original order. Tracks already
// resolved in a previous run are reused without hitting the platform.
// Any worker error, cancellation included, fails the whole batch so no
// mapping produced alongside it is ever persisted.
func (e *CleanupEngine) resolveBatch(ctx context.Context, jobID string, batch []models.Track, resolved map[string]*models.TrackMapping) ([]*models.TrackMapping, error) {
	results := make([]*models.TrackMapping, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	sem := make(chan struct{}, resolveWorkers)

	for i, track := range batch {
		if existing, ok := resolved[track.ID]; ok {
			results[i] = existing
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, track models.Track) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = e.matcher.Resolve(ctx, jobID, track)
		}(i, track)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// publishCleanPlaylist creates the target playlist and fills it with the
// resolved tracks in source order, skipping unmatched tracks.
func (e *CleanupEngine) publishCleanPlaylist(ctx context.Context, job *models.Job, mappings []*models.TrackMapping) error {
	name := job.SourcePlaylistName() + cleanPlaylistSuffix
	description := fmt.Sprintf("Clean copy of %s", job.SourcePlaylistName())

	playlist, err := e.service.CreatePlaylist(ctx, name, description)
	if err != nil {
		return fmt.Errorf("creating clean playlist: %w", err)
	}
	job.SetTargetPlaylist(playlist.ID, name)

	var trackIDs []string
	for _, m := range mappings {
		if m.HasCleanMatch() {
			trackIDs = append(trackIDs, m.TargetTrackID())
		}
	}

	if len(trackIDs) > 0 {
		if err := e.service.AddTracks(ctx, playlist.ID, trackIDs, -1); err != nil {
			return fmt.Errorf("adding tracks to clean playlist: %w", err)
		}
	}

	return nil
}

// failJob marks the job failed with the causing message. Mappings already
// written stay in place so a restart can reuse them.
func (e *CleanupEngine) failJob(ctx context.Context, job *models.Job, progress chan<- Snapshot, cause error) error {
	e.logger.Error("cleanup job failed", "job_id", job.ID(), "err", cause)

	job.SetStatusUnchecked(models.JobFailed)
	job.SetErrorMessage(cause.Error())
	job.SetUpdatedAt(time.Now())
	if err := e.jobs.Update(ctx, job); err != nil {
		e.logger.Error("could not persist failure state", "job_id", job.ID(), "err", err)
	}

	e.sendProgress(progress, Snapshot{
		JobID:     job.ID(),
		Processed: job.ProcessedTracks(),
		Total:     job.TotalTracks(),
		Message:   cause.Error(),
		Failed:    true,
	})

	return cause
}

// sendProgress delivers a snapshot without ever blocking the pipeline.
func (e *CleanupEngine) sendProgress(progress chan<- Snapshot, s Snapshot) {
	if progress == nil {
		return
	}
	select {
	case progress <- s:
	default:
	}
}

func (e *CleanupEngine) snapshotFor(job *models.Job, tracker *ProgressTracker, index int, trackName string) Snapshot {
	s := tracker.Snapshot(index, trackName)
	s.JobID = job.ID()
	return s
}

// dedupeTracks keeps the first occurrence of each track ID.
func dedupeTracks(tracks []models.Track) []models.Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
