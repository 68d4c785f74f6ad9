package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints ledger records, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	var status models.Status
	if raw := cmd.String("status"); raw != "" {
		s, ok := models.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, raw)
		}
		status = s
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidFlag)
	}

	store, err := r.historyStore(ctx)
	if err != nil {
		return err
	}
	defer r.closeStore()

	records, err := store.List()
	if err != nil {
		return err
	}

	filtered := make([]models.HistoryRecord, 0, len(records))
	for _, rec := range records {
		if status != "" && rec.Status != status {
			continue
		}
		filtered = append(filtered, rec)
		if limit > 0 && len(filtered) == limit {
			break
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(filtered, true)
	}

	if len(filtered) == 0 {
		return r.writePlain("No downloads yet\n")
	}
	return formatter.Write(r.output, filtered, formatter.FormatText)
}

// HistoryShow prints one record.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	store, err := r.historyStore(ctx)
	if err != nil {
		return err
	}
	defer r.closeStore()

	rec, err := store.Get(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(rec, true)
	}

	r.writePlainHeader(rec.DisplayTitle())
	r.writePlain("ID:          %s\n", rec.ID)
	r.writePlain("Source:      %s\n", rec.SourceLocator)
	r.writePlain("Status:      %s\n", rec.Status)
	r.writePlain("Destination: %s\n", rec.Destination)
	if rec.FormatSpec != "" {
		r.writePlain("Format:      %s\n", rec.FormatSpec)
	}
	selection := rec.ItemSelection
	if selection == "" {
		selection = "all"
	}
	r.writePlain("Items:       %s\n", selection)
	if rec.ItemCount > 0 {
		r.writePlain("Item count:  %d\n", rec.ItemCount)
	}
	r.writePlain("Created:     %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	r.writePlain("Updated:     %s\n", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if rec.ErrorDetail != "" {
		r.writePlainln("Error: %s", rec.ErrorDetail)
	}
	return nil
}

// HistoryExport writes the whole ledger in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.historyStore(ctx)
	if err != nil {
		return err
	}
	defer r.closeStore()

	records, err := store.List()
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(records, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("history exported", "path", path, "records", len(records))
	return r.writePlain("Exported %d records to %s\n", len(records), path)
}

// HistoryOpen opens a job's destination folder with the system file browser.
func (r *Runner) HistoryOpen(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	store, err := r.historyStore(ctx)
	if err != nil {
		return err
	}
	defer r.closeStore()

	rec, err := store.Get(id)
	if err != nil {
		return err
	}

	dest := shared.ExpandPath(rec.Destination)
	r.logger.Debug("opening destination", "job", id, "path", dest)
	return shared.OpenPath(dest)
}
