package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytq/internal/server"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP control API until interrupted, then stops every active job.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fanout := tasks.NewFanout(0)
	defer fanout.Close()

	orch, err := r.newOrchestrator(ctx, fanout.Publish)
	if err != nil {
		return err
	}
	defer r.closeStore()

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(server.NewJobsHandler(orch, r.store, fanout, r.logger))

	srv := server.NewServer(r.config.Server.ServerAddr(), router, r.logger)
	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("jobs did not stop in time", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
