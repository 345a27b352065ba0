package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/repositories"
	"github.com/desertthunder/cleanify/internal/services"
	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/desertthunder/cleanify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the Runner's logger, e.g. to redirect output to a file while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, jobsCommand, syncCommand, workerCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stores bundles the database handle with the repositories built on it.
//
// Commands open stores lazily so that commands which never touch the
// database (auth, playlists) work without one.
type stores struct {
	db       *sql.DB
	jobs     *repositories.JobRepository
	mappings *repositories.MappingRepository
	configs  *repositories.SyncConfigRepository
	history  *repositories.SyncHistoryRepository
}

func (s *stores) Close() error {
	return s.db.Close()
}

func (r *Runner) openStores() (*stores, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return &stores{
		db:       db,
		jobs:     repositories.NewJobRepository(db),
		mappings: repositories.NewMappingRepository(db),
		configs:  repositories.NewSyncConfigRepository(db),
		history:  repositories.NewSyncHistoryRepository(db),
	}, nil
}

// cleanupEngine builds the cleanup pipeline on top of the given stores.
func (r *Runner) cleanupEngine(s *stores) (*tasks.CleanupEngine, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	matcher := tasks.NewTrackMatcher(r.spotify, r.logger)
	return tasks.NewCleanupEngine(s.jobs, s.mappings, r.spotify, matcher, r.logger), nil
}

// syncEngine builds the sync engine on top of the given stores.
func (r *Runner) syncEngine(s *stores) (*tasks.SyncEngine, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	matcher := tasks.NewTrackMatcher(r.spotify, r.logger)
	return tasks.NewSyncEngine(s.configs, s.history, s.mappings, r.spotify, matcher, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
