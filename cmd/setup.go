package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default config file to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Config written to %s\n", path)
}

// SetupDatabase initializes the SQLite history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := shared.ExpandPath(r.config.Database.Path)
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", path, version)
	if r.config.History.Backend != "sqlite" {
		r.writePlain("Set [history] backend = \"sqlite\" in %s to record history there\n", r.configPath)
	}
	return nil
}

// SetupCheck reports whether the engine's external binaries can be found.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	report := services.DependencyStatus(r.config.Engine.Binary, r.config.Engine.FFmpegBinary)

	r.writePlainHeader("Dependencies")
	r.writeDependency("yt-dlp", report.YTDLPFound, report.YTDLPPath)
	r.writeDependency("ffmpeg", report.FFmpegFound, report.FFmpegPath)

	return report.Err()
}

func (r *Runner) writeDependency(name string, found bool, path string) {
	if found {
		r.writePlain("✓ %-7s %s\n", name, path)
		return
	}
	r.writePlain("✗ %-7s not found\n", name)
}
