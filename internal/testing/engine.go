package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
)

const defaultHoldInterval = 5 * time.Millisecond

// Script describes how [ScriptedEngine] plays out one source.
type Script struct {
	// Events are passed to the hook in order.
	Events []services.Progress

	// Hold, when non-nil, keeps the download running after Events until it is closed. While holding, the last event
	// (or a bare downloading report) is re-sent every Interval.
	Hold     <-chan struct{}
	Interval time.Duration

	// Err is returned once the script has played out.
	Err error

	// Panic, when non-nil, is raised instead of returning.
	Panic any
}

// ScriptedEngine is a [services.Engine] that replays canned progress per source locator.
type ScriptedEngine struct {
	mu       sync.Mutex
	scripts  map[string]Script
	requests []services.DownloadRequest
}

// NewScriptedEngine creates an engine with no scripts.
func NewScriptedEngine() *ScriptedEngine {
	return &ScriptedEngine{scripts: make(map[string]Script)}
}

// Add registers s for source and returns the engine for chaining.
func (e *ScriptedEngine) Add(source string, s Script) *ScriptedEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[source] = s
	return e
}

// Requests returns every request the engine received, in arrival order.
func (e *ScriptedEngine) Requests() []services.DownloadRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]services.DownloadRequest(nil), e.requests...)
}

// Download implements [services.Engine].
func (e *ScriptedEngine) Download(ctx context.Context, req services.DownloadRequest, hook services.ProgressHook) error {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	script, ok := e.scripts[req.SourceLocator]
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("no script for %q", req.SourceLocator)
	}

	for _, p := range script.Events {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
		}
		if err := hook(p); err != nil {
			return fmt.Errorf("progress hook aborted download: %w", err)
		}
	}

	if script.Hold != nil {
		if err := e.hold(ctx, script, hook); err != nil {
			return err
		}
	}

	if script.Panic != nil {
		panic(script.Panic)
	}
	return script.Err
}

func (e *ScriptedEngine) hold(ctx context.Context, script Script, hook services.ProgressHook) error {
	interval := script.Interval
	if interval <= 0 {
		interval = defaultHoldInterval
	}

	heartbeat := services.Progress{Status: services.PhaseDownloading, ETA: -1}
	if n := len(script.Events); n > 0 {
		heartbeat = script.Events[n-1]
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-script.Hold:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", shared.ErrCancelled, ctx.Err())
		case <-ticker.C:
			if err := hook(heartbeat); err != nil {
				return fmt.Errorf("progress hook aborted download: %w", err)
			}
		}
	}
}

// Downloading returns a downloading progress report for item index (1-based) of count.
func Downloading(title string, index, count int, downloaded, total int64, speed float64) services.Progress {
	return services.Progress{
		Status:          services.PhaseDownloading,
		Title:           title,
		Filename:        title + ".mp4",
		DownloadedBytes: downloaded,
		TotalBytes:      total,
		Speed:           speed,
		ETA:             -1,
		ItemIndex:       index,
		ItemCount:       count,
	}
}

// Finished returns a finished progress report for item index (1-based) of count.
func Finished(title string, index, count int) services.Progress {
	return services.Progress{
		Status:    services.PhaseFinished,
		Title:     title,
		Filename:  title + ".mp4",
		ETA:       -1,
		ItemIndex: index,
		ItemCount: count,
	}
}
