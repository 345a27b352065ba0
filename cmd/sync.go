package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/desertthunder/cleanify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncEnable enables scheduled synchronization for a completed cleanup job.
func (r *Runner) SyncEnable(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")

	frequency, err := models.ParseFrequency(cmd.String("frequency"))
	if err != nil {
		return err
	}

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status() != models.JobCompleted || job.TargetPlaylistID() == "" {
		return fmt.Errorf("%w: job %s has no clean copy to sync (status: %s)", shared.ErrInvalidArgument, jobID, job.Status())
	}

	config := models.NewSyncConfig(0, job, frequency)

	next, err := tasks.NextRunTime(frequency, nil)
	if err != nil {
		return err
	}
	config.SetNextScheduledSync(&next)

	if err := s.configs.Create(ctx, config); err != nil {
		return err
	}

	r.logger.Info("sync enabled", "config", config.ID(), "job", jobID, "frequency", frequency)
	r.writePlain("✓ Sync enabled for %s (%s)\n", job.SourcePlaylistName(), frequency)
	r.writePlain("  Config: %s\n", config.ID())
	r.writePlain("  Next run: %s\n", next.Format(time.RFC1123))

	return nil
}

// SyncDisable deactivates the active sync configuration for a job.
func (r *Runner) SyncDisable(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	config, err := s.configs.GetActiveByJob(ctx, jobID)
	if err != nil {
		return err
	}

	if err := s.configs.Deactivate(ctx, config.ID()); err != nil {
		return err
	}

	r.logger.Info("sync disabled", "config", config.ID(), "job", jobID)
	r.writePlain("✓ Sync disabled for %s\n", config.SourcePlaylistName())

	return nil
}

// SyncRun runs the active sync for a job immediately.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	config, err := s.configs.GetActiveByJob(ctx, jobID)
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(s)
	if err != nil {
		return err
	}

	r.writePlain("Syncing %s → %s...\n\n", config.SourcePlaylistName(), config.TargetPlaylistName())

	result, err := engine.RunSync(ctx, config)
	if err != nil {
		return err
	}

	r.writePlainHeader("Sync Complete!")
	r.writePlain("Added: %d tracks\n", result.Added)
	r.writePlain("Removed: %d tracks\n", result.Removed)
	r.writePlain("Unchanged: %d tracks\n", result.Unchanged)
	if result.Matched > 0 {
		r.writePlain("Newly matched: %d tracks\n", result.Matched)
	}
	r.writePlain("Duration: %s\n", result.Duration.Round(time.Millisecond))

	return nil
}

// SyncList lists all sync configurations.
func (r *Runner) SyncList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	configs, err := s.configs.List(ctx, map[string]any{})
	if err != nil {
		return err
	}

	if useJSON {
		summaries := make([]map[string]any, 0, len(configs))
		for _, config := range configs {
			summaries = append(summaries, syncSummary(config))
		}
		return r.writeJSON(summaries, true)
	}

	r.writePlain("Found %d sync configurations:\n\n", len(configs))
	for _, config := range configs {
		marker := "✗ inactive"
		if config.Active() {
			marker = "✓ active"
		}
		r.writePlain("%s  [%s]\n", config.ID(), marker)
		r.writePlain("   %s → %s (%s)\n", config.SourcePlaylistName(), config.TargetPlaylistName(), config.Frequency())
		if last := config.LastSyncedAt(); last != nil {
			r.writePlain("   Last sync: %s (%s)\n", last.Format(time.RFC1123), config.LastSyncStatus())
		}
		if next := config.NextScheduledSync(); next != nil {
			r.writePlain("   Next run: %s\n", next.Format(time.RFC1123))
		}
		if config.LastSyncError() != "" {
			r.writePlain("   Error: %s\n", config.LastSyncError())
		}
		r.writePlain("\n")
	}

	return nil
}

// SyncHistory shows recent sync runs for a configuration.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	configID := cmd.String("id")
	limit := cmd.Int("limit")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.history.ListByConfig(ctx, configID, int(limit))
	if err != nil {
		return err
	}

	r.writePlain("Showing %d sync runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("%s  [%s]\n", run.StartedAt().Format(time.RFC1123), run.Status())
		r.writePlain("   Added: %d, Removed: %d, Unchanged: %d\n", run.TracksAdded(), run.TracksRemoved(), run.TracksUnchanged())
		if run.ExecutionMS() > 0 {
			r.writePlain("   Duration: %dms\n", run.ExecutionMS())
		}
		if run.ErrorMessage() != "" {
			r.writePlain("   Error: %s\n", run.ErrorMessage())
		}
		r.writePlain("\n")
	}

	return nil
}

func syncSummary(config *models.SyncConfig) map[string]any {
	summary := map[string]any{
		"id":              config.ID(),
		"job_id":          config.JobID(),
		"source_playlist": config.SourcePlaylistName(),
		"target_playlist": config.TargetPlaylistName(),
		"frequency":       string(config.Frequency()),
		"active":          config.Active(),
		"last_status":     string(config.LastSyncStatus()),
	}
	if last := config.LastSyncedAt(); last != nil {
		summary["last_synced_at"] = last.Format(time.RFC3339)
	}
	if next := config.NextScheduledSync(); next != nil {
		summary["next_scheduled_sync"] = next.Format(time.RFC3339)
	}
	return summary
}
