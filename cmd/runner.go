package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/repositories"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        tasks.LibraryAPI
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	lookupEnv  func(string) (string, bool)
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        tasks.LibraryAPI // Built from the configuration when nil
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	LookupEnv  func(string) (string, bool)
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, historyCommand, stateCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies environment overrides.
//
// A missing file falls back to the embedded defaults so "setup config" can create it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.logger.Debug("loaded config", "path", r.configPath)
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	default:
		return ctx, err
	}

	config.ApplyEnv(r.lookupEnv)
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// libraryAPI returns the injected API or builds a Spotify client from the configuration.
func (r *Runner) libraryAPI() (tasks.LibraryAPI, error) {
	if r.api != nil {
		return r.api, nil
	}

	client, err := services.NewSpotifyClientFromConfig(r.config, r.httpClient, r.logger)
	if err != nil {
		return nil, err
	}
	r.api = client
	return client, nil
}

// openRuns opens the run-history database. It returns nil when no database path is configured.
func (r *Runner) openRuns(ctx context.Context) (*repositories.SyncRunRepository, func() error, error) {
	if r.config.Database.Path == "" {
		return nil, func() error { return nil }, nil
	}

	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repositories.NewSyncRunRepository(db), db.Close, nil
}

func (r *Runner) stateStore() *shared.FileStateStore {
	return shared.NewFileStateStore(r.config.Sync.StatePath)
}

// write prints rendered output, terminated by a newline.
func (r *Runner) write(data []byte) error {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
