package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/repositories"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	engine     services.Engine
	store      repositories.HistoryStore
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Engine     services.Engine           // defaults to yt-dlp built from Config
	Store      repositories.HistoryStore // defaults to the configured history backend
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
		engine:     opts.Engine,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, monitorCommand, serveCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config, falling back to defaults when it does not exist.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", path)
	default:
		return ctx, err
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger used by commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// downloadEngine returns the injected engine or a yt-dlp service built from the config.
func (r *Runner) downloadEngine() services.Engine {
	if r.engine != nil {
		return r.engine
	}
	return services.NewYTDLPService(services.YTDLPOptions{
		Binary:       r.config.Engine.Binary,
		FFmpegBinary: r.config.Engine.FFmpegBinary,
		IgnoreErrors: r.config.Engine.IgnoreErrors,
		RecodeVideo:  r.config.Engine.RecodeVideo,
		ExtraArgs:    r.config.Engine.ExtraArgs,
		Logger:       r.logger,
	})
}

// historyStore opens the configured history backend once.
func (r *Runner) historyStore(ctx context.Context) (repositories.HistoryStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := repositories.OpenHistoryStore(ctx, r.config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	r.store = store
	return store, nil
}

// closeStore closes the history store opened by [Runner.historyStore].
func (r *Runner) closeStore() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close history", "error", err)
	}
	r.store = nil
}

// newOrchestrator wires the engine, history store and sink into an orchestrator using config defaults.
func (r *Runner) newOrchestrator(ctx context.Context, sink tasks.Sink) (*tasks.Orchestrator, error) {
	store, err := r.historyStore(ctx)
	if err != nil {
		return nil, err
	}

	return tasks.NewOrchestrator(tasks.OrchestratorOpts{
		Engine:             r.downloadEngine(),
		Ledger:             store,
		Sink:               sink,
		Logger:             r.logger,
		DefaultDestination: r.config.Downloads.Destination,
		DefaultFormat:      r.config.Downloads.Format,
		OutputTemplate:     r.config.Downloads.OutputTemplate,
		SaveThumbnails:     r.config.Downloads.SaveThumbnails,
		PollInterval:       r.config.Control.PausePollInterval(),
		PausedEmitInterval: r.config.Control.PausedEmitInterval(),
	})
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
