package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cleanify/internal/formatter"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/services"
	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/desertthunder/cleanify/internal/tasks"
	"github.com/desertthunder/cleanify/internal/ui"
	"github.com/urfave/cli/v3"
)

// userProfiler is implemented by services that can identify the authenticated user.
type userProfiler interface {
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
}

// JobsCreate creates a cleanup job for a source playlist, optionally running it immediately.
func (r *Runner) JobsCreate(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("playlist")
	runNow := cmd.Bool("run") || cmd.Bool("watch")

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	playlist, err := r.spotify.GetPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	userID := "local"
	if profiler, ok := r.spotify.(userProfiler); ok {
		if profile, err := profiler.UserProfile(ctx); err == nil && profile.ID != "" {
			userID = profile.ID
		}
	}

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	job := models.NewJob(0, userID, playlist.ID, playlist.Name)
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Info("job created", "id", job.ID(), "playlist", playlist.Name)
	r.writePlain("✓ Created cleanup job %s\n", job.ID())
	r.writePlain("  Playlist: %s (%d tracks)\n", playlist.Name, playlist.TrackCount)

	if !runNow {
		r.writePlain("\nRun it with: cleanify jobs run --id %s\n", job.ID())
		return nil
	}

	return r.runJob(ctx, s, job.ID(), cmd.Bool("watch"))
}

// JobsRun runs a pending or failed cleanup job.
func (r *Runner) JobsRun(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("id")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	return r.runJob(ctx, s, jobID, cmd.Bool("watch"))
}

// JobsWatch runs a job with the live progress TUI attached.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("id")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	return r.runJob(ctx, s, jobID, true)
}

// runJob executes a job through the cleanup engine, streaming progress either
// as plain text lines or through the live watch TUI.
func (r *Runner) runJob(ctx context.Context, s *stores, jobID string, watch bool) error {
	engine, err := r.cleanupEngine(s)
	if err != nil {
		return err
	}

	if watch {
		return r.watchJob(ctx, engine, jobID)
	}

	progress := make(chan tasks.Snapshot, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snapshot := range progress {
			if snapshot.Failed {
				r.writePlain("✗ %s\n", snapshot.Message)
				continue
			}
			r.writePlain("[%3d%%] %s\n", snapshot.Percent, snapshot.Message)
		}
	}()

	runErr := engine.ProcessJob(ctx, jobID, progress)
	close(progress)
	<-done

	if runErr != nil {
		return runErr
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	r.writePlainHeader("Cleanup Complete!")
	r.writePlain("Source: %s (%d tracks)\n", job.SourcePlaylistName(), job.TotalTracks())
	r.writePlain("Clean copy: %s\n", job.TargetPlaylistName())
	r.writePlain("Matched: %d/%d tracks\n", job.MatchedTracks(), job.TotalTracks())

	return nil
}

// watchJob runs the job with a live progress TUI attached to its snapshot stream.
func (r *Runner) watchJob(ctx context.Context, engine *tasks.CleanupEngine, jobID string) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cleanify-watch.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	progress := make(chan tasks.Snapshot, 64)
	runErr := make(chan error, 1)
	go func() {
		runErr <- engine.ProcessJob(ctx, jobID, progress)
		close(progress)
	}()

	model := ui.NewWatchModel(jobID, progress)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running watch TUI: %w", err)
	}

	return <-runErr
}

// JobsList lists cleanup jobs, optionally filtered by status.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	useJSON := cmd.Bool("json")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	criteria := map[string]any{}
	if status != "" {
		criteria["status"] = status
	}

	jobs, err := s.jobs.List(ctx, criteria)
	if err != nil {
		return err
	}

	if useJSON {
		summaries := make([]map[string]any, 0, len(jobs))
		for _, job := range jobs {
			summaries = append(summaries, jobSummary(job))
		}
		return r.writeJSON(summaries, true)
	}

	r.writePlain("Found %d jobs:\n\n", len(jobs))
	for _, job := range jobs {
		r.writePlain("%s  [%s]\n", job.ID(), job.Status())
		r.writePlain("   Playlist: %s\n", job.SourcePlaylistName())
		if job.TargetPlaylistName() != "" {
			r.writePlain("   Clean copy: %s\n", job.TargetPlaylistName())
		}
		r.writePlain("   Progress: %d/%d processed, %d matched\n", job.ProcessedTracks(), job.TotalTracks(), job.MatchedTracks())
		if job.ErrorMessage() != "" {
			r.writePlain("   Error: %s\n", job.ErrorMessage())
		}
		r.writePlain("\n")
	}

	return nil
}

// JobsStatus shows the status and progress of a single job.
func (r *Runner) JobsStatus(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("id")
	useJSON := cmd.Bool("json")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if useJSON {
		data, err := formatter.ToJobJSON(job)
		if err != nil {
			return err
		}
		r.output.Write(data)
		r.output.Write([]byte("\n"))
		return nil
	}

	r.writePlain("Job: %s\n", job.ID())
	r.writePlain("Status: %s\n", job.Status())
	r.writePlain("Playlist: %s\n", job.SourcePlaylistName())
	if job.TargetPlaylistName() != "" {
		r.writePlain("Clean copy: %s (%s)\n", job.TargetPlaylistName(), job.TargetPlaylistID())
	}
	r.writePlain("Progress: %d/%d processed, %d matched\n", job.ProcessedTracks(), job.TotalTracks(), job.MatchedTracks())
	if job.CurrentBatch() != "" {
		r.writePlain("Batch: %s\n", job.CurrentBatch())
	}
	if job.ErrorMessage() != "" {
		r.writePlain("Error: %s\n", job.ErrorMessage())
	}

	return nil
}

// JobsReport exports a job's track mapping report to a file.
func (r *Runner) JobsReport(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("id")
	format := cmd.String("format")
	output := cmd.String("output")

	s, err := r.openStores()
	if err != nil {
		return err
	}
	defer s.Close()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	mappings, err := s.mappings.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	path, err := formatter.WriteReport(job, mappings, format, output)
	if err != nil {
		return err
	}

	r.logger.Info("report written", "path", path, "format", format)
	r.writePlain("✓ Report written to %s\n", path)

	return nil
}

func jobSummary(job *models.Job) map[string]any {
	return map[string]any{
		"id":               job.ID(),
		"status":           string(job.Status()),
		"source_playlist":  job.SourcePlaylistName(),
		"target_playlist":  job.TargetPlaylistName(),
		"total_tracks":     job.TotalTracks(),
		"processed_tracks": job.ProcessedTracks(),
		"matched_tracks":   job.MatchedTracks(),
		"error":            job.ErrorMessage(),
	}
}
