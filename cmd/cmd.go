// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// downloadCommand runs one job in the foreground and prints its progress
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl", "get"},
		Usage:   "Download a playlist, printing progress until it finishes (Ctrl+C stops it)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "source",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Destination directory (default from config)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "yt-dlp format selector (default from config)",
			},
			&cli.StringFlag{
				Name:    "items",
				Aliases: []string{"i"},
				Usage:   "Playlist items to fetch, numbered from 1 (e.g. 1,3,5-7)",
			},
			&cli.BoolFlag{
				Name:  "thumbnails",
				Usage: "Also save thumbnails",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print status events as JSON lines",
			},
		},
		Action: r.Download,
	}
}

// monitorCommand launches the terminal job monitor
func monitorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "monitor",
		Aliases:   []string{"tui", "ui"},
		Usage:     "Launch the interactive job monitor, optionally starting the given sources",
		ArgsUsage: "[source...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where monitor logs are written",
				Value: "~/.ytq/monitor.log",
			},
		},
		Action: r.Monitor,
	}
}

// serveCommand runs the HTTP control API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the job control API and status event stream over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// historyCommand handles the download history ledger
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Inspect past downloads",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show jobs with this status",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of jobs to show (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one job",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "export",
				Usage: "Export the history to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, json, md, txt)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default ytq_history.<format>)",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:  "open",
				Usage: "Open a job's destination folder",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.HistoryOpen,
			},
		},
	}
}

// setupCommand handles setup operations for config, database and dependencies.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the SQLite history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "check",
				Usage:  "Check that yt-dlp and ffmpeg are installed",
				Action: r.SetupCheck,
			},
		},
	}
}
