package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

const progressPrintInterval = 500 * time.Millisecond

// printer writes status events as lines. Progress and paused lines are rate limited, lifecycle lines never are.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	limiter *rate.Limiter
	asJSON  bool
}

func newPrinter(out io.Writer, interval time.Duration, asJSON bool) *printer {
	return &printer{
		out:     out,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		asJSON:  asJSON,
	}
}

// Print implements [tasks.Sink].
func (p *printer) Print(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Status == models.StatusDownloading || ev.Status == models.StatusPaused {
		if !p.limiter.Allow() {
			return
		}
	}

	if p.asJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(p.out, "%s\n", data)
		return
	}
	fmt.Fprintln(p.out, formatter.FormatEvent(ev))
}

// Download runs one job in the foreground. The first interrupt stops the job; the command returns once the job
// has reached a terminal status.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: source is required", shared.ErrMissingArgument)
	}

	items, err := models.ParseItemSelection(cmd.String("items"))
	if err != nil {
		return fmt.Errorf("%w: --items: %v", shared.ErrInvalidFlag, err)
	}

	p := newPrinter(r.output, progressPrintInterval, cmd.Bool("json"))

	orch, err := r.newOrchestrator(ctx, p.Print)
	if err != nil {
		return err
	}
	defer r.closeStore()

	id, err := orch.Start(models.JobRequest{
		SourceLocator:   source,
		Destination:     cmd.String("dest"),
		ItemSelection:   items,
		FormatSpec:      cmd.String("format"),
		SaveExtraAssets: cmd.Bool("thumbnails"),
	})
	if err != nil {
		return err
	}
	r.logger.Debug("job started", "job", id, "source", source)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	finished := make(chan struct{})
	go func() {
		orch.Wait()
		close(finished)
	}()

	cancelled := ctx.Done()
wait:
	for {
		select {
		case <-finished:
			break wait
		case <-sigCh:
			r.logger.Warn("interrupt received, stopping download", "job", id)
			if err := orch.RequestStop(id); err != nil {
				r.logger.Debug("stop request ignored", "job", id, "error", err)
			}
		case <-cancelled:
			cancelled = nil
			_ = orch.RequestStop(id)
		}
	}

	return r.reportJob(ctx, id)
}

// reportJob prints the ledger's final view of a job and turns an error status into a command error.
func (r *Runner) reportJob(ctx context.Context, id string) error {
	store, err := r.historyStore(ctx)
	if err != nil {
		return err
	}

	rec, err := store.Get(id)
	if err != nil {
		return err
	}

	switch rec.Status {
	case models.StatusError:
		return fmt.Errorf("%w: %s", shared.ErrEngineFailure, rec.ErrorDetail)
	case models.StatusStopped:
		return r.writePlain("Stopped %s (%s)\n", rec.DisplayTitle(), rec.ID)
	default:
		items := "all items"
		if rec.ItemCount > 0 {
			items = fmt.Sprintf("%d items", rec.ItemCount)
		}
		return r.writePlain("Finished %s: %s to %s\n", rec.DisplayTitle(), items, rec.Destination)
	}
}
