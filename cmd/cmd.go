// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles Spotify OAuth2 authorization.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Auth,
	}
}

// playlistsCommand lists the authenticated user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List your playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// jobsCommand handles cleanup job operations.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"job"},
		Usage:   "Playlist cleanup jobs",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a cleanup job for a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "run",
						Usage: "Run the job immediately after creating it",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Show live progress while running (implies --run)",
					},
				},
				Action: r.JobsCreate,
			},
			{
				Name:  "run",
				Usage: "Run a pending or failed cleanup job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID to run",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Show live progress in the terminal",
					},
				},
				Action: r.JobsRun,
			},
			{
				Name:  "watch",
				Usage: "Run a job with a live progress view",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID to run",
						Required: true,
					},
				},
				Action: r.JobsWatch,
			},
			{
				Name:  "list",
				Usage: "List cleanup jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (pending, processing, completed, failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "status",
				Usage: "Show status and progress of a job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsStatus,
			},
			{
				Name:  "report",
				Usage: "Export a job's track mapping report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format (csv, markdown, text)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.JobsReport,
			},
		},
	}
}

// syncCommand handles playlist sync configuration and execution.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Scheduled playlist synchronization",
		Commands: []*cli.Command{
			{
				Name:  "enable",
				Usage: "Enable scheduled sync for a completed job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Usage:    "Cleanup job ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "frequency",
						Aliases: []string{"f"},
						Usage:   "Sync frequency (daily or weekly)",
						Value:   "daily",
					},
				},
				Action: r.SyncEnable,
			},
			{
				Name:  "disable",
				Usage: "Disable the active sync for a job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Usage:    "Cleanup job ID",
						Required: true,
					},
				},
				Action: r.SyncDisable,
			},
			{
				Name:  "run",
				Usage: "Run a sync immediately",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Usage:    "Cleanup job ID",
						Required: true,
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "list",
				Usage: "List sync configurations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncList,
			},
			{
				Name:  "history",
				Usage: "Show recent sync runs for a configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Sync configuration ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
				},
				Action: r.SyncHistory,
			},
		},
	}
}

// workerCommand runs the background scheduler daemon.
func workerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the background worker that drains jobs and due syncs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Poll interval override, e.g. 30s or 2m",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Max concurrent executions override",
			},
		},
		Action: r.WorkerRun,
	}
}
