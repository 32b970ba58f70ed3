package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesync/internal/formatter"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/repositories"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// withHistory opens the run-history database for the duration of fn.
func (r *Runner) withHistory(ctx context.Context, fn func(*repositories.SyncRunRepository) error) error {
	if r.config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	runs, closeDB, err := r.openRuns(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	return fn(runs)
}

// HistoryList prints recorded passes, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"), formatter.HistoryFormats)
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		switch models.RunStatus(status) {
		case models.RunStatusRunning, models.RunStatusSucceeded, models.RunStatusFailed:
			criteria["status"] = status
		default:
			return fmt.Errorf("%w: status %q", shared.ErrInvalidFlag, status)
		}
	}

	return r.withHistory(ctx, func(runs *repositories.SyncRunRepository) error {
		list, err := runs.List(ctx, criteria)
		if err != nil {
			return err
		}

		data, err := formatter.FormatHistory(list, format)
		if err != nil {
			return err
		}

		if output := cmd.String("output"); output != "" {
			if err := formatter.WriteFile(output, data); err != nil {
				return err
			}
			r.logger.Info("history exported", "path", output, "passes", len(list))
			return r.writePlain("✓ Wrote %d passes to %s\n", len(list), output)
		}
		return r.write(data)
	})
}

// HistoryShow prints one pass by id, or the latest pass.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"), formatter.HistoryFormats)
	if err != nil {
		return err
	}

	return r.withHistory(ctx, func(runs *repositories.SyncRunRepository) error {
		var run *models.SyncRun
		if id := cmd.StringArg("id"); id != "" {
			run, err = runs.Get(ctx, id)
		} else {
			run, err = runs.Latest(ctx)
		}
		if err != nil {
			return err
		}

		data, err := formatter.FormatHistory([]*models.SyncRun{run}, format)
		if err != nil {
			return err
		}
		return r.write(data)
	})
}

// HistoryDelete removes a recorded pass.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: pass id", shared.ErrMissingArgument)
	}

	return r.withHistory(ctx, func(runs *repositories.SyncRunRepository) error {
		if err := runs.Delete(ctx, id); err != nil {
			return err
		}
		return r.writePlain("✓ Deleted pass %s\n", id)
	})
}
