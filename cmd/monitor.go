package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/desertthunder/ytq/internal/ui"
	"github.com/urfave/cli/v3"
)

const (
	monitorEventBuffer = 256
	shutdownTimeout    = 10 * time.Second
)

// Monitor launches the interactive job monitor. Sources given as arguments are started right away.
func (r *Runner) Monitor(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(cmd.String("log-file")))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	fanout := tasks.NewFanout(monitorEventBuffer)
	defer fanout.Close()

	orch, err := r.newOrchestrator(ctx, fanout.Publish)
	if err != nil {
		return err
	}
	defer r.closeStore()

	events, unsubscribe := fanout.Subscribe()
	defer unsubscribe()

	for _, source := range cmd.Args().Slice() {
		if _, err := orch.Start(models.JobRequest{SourceLocator: source}); err != nil {
			return err
		}
	}

	model := ui.NewModel(orch, events)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	_, runErr := p.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("jobs did not stop in time", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("error running monitor: %w", runErr)
	}
	return nil
}
