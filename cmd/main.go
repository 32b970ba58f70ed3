package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(os.Stderr)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		logger.Error("likesync failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "likesync",
		Usage:    "Mirror your Spotify liked songs into a playlist",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   r.Before,
		Commands: r.register(),
	}
}
