package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/desertthunder/likesync/internal/formatter"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/repositories"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// passOpts are the per-invocation switches of a pass.
type passOpts struct {
	DryRun       bool
	ItemFallback bool
}

// rotator is implemented by clients that can tell when the service issued a new refresh token.
type rotator interface {
	Rotated(token *oauth2.Token) bool
}

// Sync runs one reconciliation pass and prints its summary.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"), formatter.SummaryFormats)
	if err != nil {
		return err
	}

	api, err := r.libraryAPI()
	if err != nil {
		return err
	}

	opts := passOpts{
		DryRun:       cmd.Bool("dry-run"),
		ItemFallback: cmd.Bool("item-fallback") || r.config.Sync.ItemFallback,
	}

	var summary *models.SyncSummary
	if cmd.Bool("interactive") {
		summary, err = r.syncInteractive(ctx, api, opts, cmd.Bool("confirm"), cmd.String("log-file"))
	} else {
		summary, err = r.runPass(ctx, api, opts, nil)
	}
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}

	data, err := formatter.FormatSummary(summary, format)
	if err != nil {
		return err
	}
	return r.write(data)
}

// runPass reads state, runs the engine, then persists state and records the run.
func (r *Runner) runPass(ctx context.Context, api tasks.LibraryAPI, opts passOpts, progress chan<- tasks.ProgressUpdate) (*models.SyncSummary, error) {
	store := r.stateStore()
	state, err := store.Read()
	if err != nil {
		return nil, err
	}

	runs, closeDB, err := r.openRuns(ctx)
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		runs, closeDB = nil, func() error { return nil }
	}
	defer closeDB()

	run := r.beginRun(ctx, runs)
	logger := r.logger
	if run != nil {
		logger = shared.WithLogger(r.logger, "pass", run.Sequence())
	}

	engine := tasks.NewMirrorEngine(api, tasks.EngineOpts{ItemFallback: opts.ItemFallback, Logger: logger})
	engine.SetTokenRefreshCallback(r.persistRotatedToken(api))

	summary, runErr := engine.Run(ctx, tasks.SyncOpts{
		PriorCollectionID: state.CollectionID,
		FallbackTitle:     r.config.Sync.FallbackTitle,
		Description:       r.config.Sync.Description,
		DryRun:            opts.DryRun,
	}, progress)

	if err := saveState(store, state, summary, runErr); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			logger.Error("failed to save state", "error", err)
		}
	}

	r.finishRun(context.WithoutCancel(ctx), runs, run, summary, runErr)
	return summary, runErr
}

// saveState records the collection id after a pass.
//
// A failed pass still records a playlist it created so the next pass does not create another.
func saveState(store shared.StateStore, prior shared.State, summary *models.SyncSummary, runErr error) error {
	if summary == nil || summary.DryRun || summary.CollectionID == "" {
		return nil
	}
	if runErr != nil && summary.CollectionID == prior.CollectionID {
		return nil
	}
	return store.Write(shared.State{CollectionID: summary.CollectionID})
}

func (r *Runner) beginRun(ctx context.Context, runs *repositories.SyncRunRepository) *models.SyncRun {
	if runs == nil {
		return nil
	}

	run := models.NewSyncRun(0, r.now())
	if err := runs.Create(ctx, run); err != nil {
		r.logger.Warn("failed to record pass", "error", err)
		return nil
	}
	return run
}

func (r *Runner) finishRun(ctx context.Context, runs *repositories.SyncRunRepository, run *models.SyncRun, summary *models.SyncSummary, runErr error) {
	if runs == nil || run == nil {
		return
	}

	var s models.SyncSummary
	if summary != nil {
		s = *summary
	}

	if runErr != nil {
		run.Fail(s, runErr, r.now())
	} else {
		run.Succeed(s, r.now())
	}

	if err := runs.Update(ctx, run); err != nil {
		r.logger.Warn("failed to update pass record", "id", run.ID(), "error", err)
	}
}

// persistRotatedToken saves a refresh token the service rotated during the pass to the config file.
func (r *Runner) persistRotatedToken(api tasks.LibraryAPI) func(*oauth2.Token) {
	rot, ok := api.(rotator)
	return func(token *oauth2.Token) {
		if !ok || !rot.Rotated(token) || token.RefreshToken == r.config.Credentials.Spotify.RefreshToken {
			return
		}
		if err := r.config.Credentials.Spotify.Update(token); err != nil {
			r.logger.Warn("ignoring rotated refresh token", "error", err)
			return
		}

		if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) || r.configPath == "" {
			r.logger.Warn("refresh token rotated but no config file to store it in; update SPOTIFY_REFRESH_TOKEN")
			return
		}
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			r.logger.Warn("failed to save rotated refresh token", "error", err)
			return
		}
		r.logger.Info("saved rotated refresh token", "path", r.configPath)
	}
}
