// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// rootFlags are inherited by every subcommand.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("LIKESYNC_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run-history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand runs the one-time authorization flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize likesync with Spotify and store the refresh token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// syncCommand runs one reconciliation pass.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror liked songs into the playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Resolve and select songs without writing anything",
			},
			&cli.BoolFlag{
				Name:  "item-fallback",
				Usage: "Retry rejected batches one song at a time and drop unavailable songs",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Show live progress in a terminal UI",
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Ask before starting (interactive only)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Summary format: text, json or markdown",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the terminal UI is running",
				Value: "./tmp/likesync-tui.log",
			},
		},
		Action: r.Sync,
	}
}

// historyCommand inspects recorded passes.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded passes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of passes to list",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list passes with this status (running, succeeded, failed)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json or csv",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: r.HistoryList,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show one pass, or the latest when no id is given",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a recorded pass",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// stateCommand inspects the persisted state file.
func stateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect or reset the stored playlist id",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the persisted state",
				Action: r.StateShow,
			},
			{
				Name:   "reset",
				Usage:  "Forget the stored playlist id; the next pass creates a new playlist",
				Action: r.StateReset,
			},
		},
	}
}
