package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// SyncConfigStore is the persistence surface the sync engine needs for
// sync configurations.
type SyncConfigStore interface {
	Update(ctx context.Context, config *models.SyncConfig) error
}

// SyncHistoryStore persists sync run records.
type SyncHistoryStore interface {
	Create(ctx context.Context, history *models.SyncHistory) error
	Finalize(ctx context.Context, history *models.SyncHistory) error
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Added     int
	Removed   int
	Unchanged int
	Matched   int // new source tracks resolved during this run
	Duration  time.Duration
}

// SyncEngine keeps a clean target playlist in step with its source.
//
// Each run diffs the current source against the stored mappings, resolves
// any tracks added since the original job, and applies additions before
// removals so a mid-run failure leaves the target over-complete rather
// than missing tracks. Additions are inserted at their source-order
// positions so the target tracks the source's ordering, not the order in
// which tracks happened to arrive.
type SyncEngine struct {
	configs  SyncConfigStore
	history  SyncHistoryStore
	mappings MappingStore
	service  PlatformClient
	matcher  *TrackMatcher
	logger   *log.Logger
}

// PlatformClient is the subset of the platform service the sync engine uses.
type PlatformClient interface {
	ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)
}

// NewSyncEngine wires the sync engine's dependencies.
func NewSyncEngine(configs SyncConfigStore, history SyncHistoryStore, mappings MappingStore, service PlatformClient, matcher *TrackMatcher, logger *log.Logger) *SyncEngine {
	return &SyncEngine{
		configs:  configs,
		history:  history,
		mappings: mappings,
		service:  service,
		matcher:  matcher,
		logger:   logger,
	}
}

// RunSync executes one synchronization for the given config. Every attempt
// leaves a SyncHistory record; a failed run records the counts of whatever
// partial work was applied.
func (e *SyncEngine) RunSync(ctx context.Context, config *models.SyncConfig) (*SyncResult, error) {
	if !config.Active() {
		return nil, fmt.Errorf("%w: config %s", shared.ErrSyncInactive, config.ID())
	}

	record := models.NewSyncHistory(0, config.ID())
	if err := e.history.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("recording sync start: %w", err)
	}

	e.logger.Info("starting sync",
		"config_id", config.ID(),
		"source", config.SourcePlaylistName(),
		"target", config.TargetPlaylistName())

	result, runErr := e.applySync(ctx, config)
	if runErr != nil {
		e.finishRun(ctx, config, record, result, runErr)
		return nil, runErr
	}

	e.finishRun(ctx, config, record, result, nil)
	result.Duration = time.Duration(record.ExecutionMS()) * time.Millisecond

	e.logger.Info("sync completed",
		"config_id", config.ID(),
		"added", result.Added,
		"removed", result.Removed,
		"unchanged", result.Unchanged)

	return result, nil
}

// applySync performs the diff and playlist mutations. The returned result
// reflects what was actually applied, even on error.
func (e *SyncEngine) applySync(ctx context.Context, config *models.SyncConfig) (*SyncResult, error) {
	result := &SyncResult{}

	source, err := e.service.ListPlaylistTracks(ctx, config.SourcePlaylistID())
	if err != nil {
		return result, fmt.Errorf("fetching source playlist: %w", err)
	}
	source = dedupeTracks(source)

	target, err := e.service.ListPlaylistTracks(ctx, config.TargetPlaylistID())
	if err != nil {
		return result, fmt.Errorf("fetching target playlist: %w", err)
	}

	mappings, err := e.mappings.ListByJob(ctx, config.JobID())
	if err != nil {
		return result, fmt.Errorf("loading mappings: %w", err)
	}

	delta := ComputeDelta(source, target, mappings)

	// Resolve tracks added to the source since the last run, then recompute
	// the delta so the new matches take their source-order places.
	if len(delta.NeedsMatch) > 0 {
		for _, track := range delta.NeedsMatch {
			mapping, err := e.matcher.Resolve(ctx, config.JobID(), track)
			if err != nil {
				return result, fmt.Errorf("resolving %q: %w", track.Title, err)
			}
			if err := e.mappings.Create(ctx, mapping); err != nil {
				return result, fmt.Errorf("persisting mapping for %q: %w", track.Title, err)
			}
			if mapping.HasCleanMatch() {
				result.Matched++
			}
			mappings = append(mappings, mapping)
		}
		delta = ComputeDelta(source, target, mappings)
	}
	result.Unchanged = delta.Unchanged

	added, err := e.insertAdditions(ctx, config.TargetPlaylistID(), target, delta)
	result.Added = added
	if err != nil {
		return result, err
	}

	if len(delta.ToRemove) > 0 {
		if err := e.service.RemoveTracks(ctx, config.TargetPlaylistID(), delta.ToRemove); err != nil {
			return result, fmt.Errorf("removing tracks: %w", err)
		}
		result.Removed = len(delta.ToRemove)
	}

	return result, nil
}

// insertAdditions places the missing tracks at their source-order positions
// on the target, batching runs of consecutive missing tracks into a single
// positioned add. Returns how many tracks were actually added, which on
// error reflects the partial work applied.
func (e *SyncEngine) insertAdditions(ctx context.Context, playlistID string, target []models.Track, delta Delta) (int, error) {
	if len(delta.ToAdd) == 0 {
		return 0, nil
	}

	missing := make(map[string]struct{}, len(delta.ToAdd))
	for _, id := range delta.ToAdd {
		missing[id] = struct{}{}
	}

	order := make(map[string]int, len(delta.DesiredOrder))
	for i, id := range delta.DesiredOrder {
		order[id] = i
	}

	working := make([]string, 0, len(target)+len(delta.ToAdd))
	for _, t := range target {
		working = append(working, t.ID)
	}

	added := 0
	for i := 0; i < len(delta.DesiredOrder); {
		if _, add := missing[delta.DesiredOrder[i]]; !add {
			i++
			continue
		}

		j := i + 1
		for j < len(delta.DesiredOrder) {
			if _, add := missing[delta.DesiredOrder[j]]; !add {
				break
			}
			j++
		}
		run := delta.DesiredOrder[i:j]

		at := insertionPoint(working, order, order[run[0]])
		position := at
		if at == len(working) {
			position = -1
		}
		if err := e.service.AddTracks(ctx, playlistID, run, position); err != nil {
			return added, fmt.Errorf("adding tracks: %w", err)
		}

		rest := append(append([]string{}, run...), working[at:]...)
		working = append(working[:at], rest...)
		added += len(run)
		i = j
	}

	return added, nil
}

// insertionPoint finds the index of the first target entry mapped to a
// later source position. Tracks added to the target by hand have no source
// position and never move.
func insertionPoint(working []string, order map[string]int, pos int) int {
	for i, id := range working {
		if p, ok := order[id]; ok && p > pos {
			return i
		}
	}
	return len(working)
}

// finishRun closes the history record and updates the config's bookkeeping.
// Transient failures keep the config active for the next scheduled run;
// authentication failures deactivate it so the schedule stops firing until
// the user re-authenticates.
func (e *SyncEngine) finishRun(ctx context.Context, config *models.SyncConfig, record *models.SyncHistory, result *SyncResult, runErr error) {
	now := time.Now()

	status := models.SyncCompleted
	errMsg := ""
	if runErr != nil {
		status = models.SyncFailed
		errMsg = runErr.Error()
	}

	record.Finalize(status, result.Added, result.Removed, result.Unchanged, errMsg)
	if err := e.history.Finalize(ctx, record); err != nil {
		e.logger.Error("could not persist sync history", "config_id", config.ID(), "err", err)
	}

	config.SetLastSyncedAt(&now)
	config.SetLastSyncStatus(status)
	config.SetLastSyncError(errMsg)

	if runErr != nil && isAuthFailure(runErr) {
		config.SetActive(false)
		e.logger.Warn("deactivating sync after authentication failure", "config_id", config.ID())
	}

	if config.Active() {
		if next, err := NextRunTime(config.Frequency(), &now); err == nil {
			config.SetNextScheduledSync(&next)
		}
	} else {
		config.SetNextScheduledSync(nil)
	}

	config.SetUpdatedAt(now)
	if err := e.configs.Update(ctx, config); err != nil {
		e.logger.Error("could not persist sync config", "config_id", config.ID(), "err", err)
	}
}

// isAuthFailure reports whether the error means credentials are no longer
// usable, as opposed to a transient platform problem.
func isAuthFailure(err error) bool {
	return errors.Is(err, shared.ErrAuthFailed) ||
		errors.Is(err, shared.ErrTokenExpired) ||
		errors.Is(err, shared.ErrNotAuthenticated)
}
