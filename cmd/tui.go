package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	"github.com/desertthunder/likesync/internal/ui"
)

// syncInteractive runs the pass under the terminal UI and returns the last finished pass.
//
// A nil summary with nil error means the user quit before any pass started.
func (r *Runner) syncInteractive(ctx context.Context, api tasks.LibraryAPI, opts passOpts, confirm bool, logFile string) (*models.SyncSummary, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	prev := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(prev)

	state, err := r.stateStore().Read()
	if err != nil {
		return nil, err
	}

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*models.SyncSummary, error) {
		return r.runPass(ctx, api, opts, progress)
	}
	model := ui.NewModel(ctx, run, ui.Options{
		PriorCollectionID: state.CollectionID,
		DryRun:            opts.DryRun,
		Confirm:           confirm,
	})

	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()

	// A pass interrupted by quitting still saves state and records its run.
	finished := model.Wait()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	if !finished {
		return nil, nil
	}
	return model.Summary(), model.Err()
}
