package main

import (
	"context"

	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// StateShow prints the persisted state as JSON.
func (r *Runner) StateShow(ctx context.Context, cmd *cli.Command) error {
	state, err := r.stateStore().Read()
	if err != nil {
		return err
	}

	data, err := shared.MarshalJSON(state, true)
	if err != nil {
		return err
	}
	return r.write(data)
}

// StateReset removes the state file so the next pass creates a new playlist.
func (r *Runner) StateReset(ctx context.Context, cmd *cli.Command) error {
	store := r.stateStore()
	if err := store.Reset(); err != nil {
		return err
	}

	r.logger.Info("state reset", "path", store.Path())
	return r.writePlain("✓ State cleared (%s)\n", store.Path())
}
