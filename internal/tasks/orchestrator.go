package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
)

const (
	defaultPollInterval       = 250 * time.Millisecond
	defaultPausedEmitInterval = 500 * time.Millisecond
	defaultOutputTemplate     = "%(playlist_index)s - %(title)s.%(ext)s"
)

// Ledger is the part of the history store the orchestrator writes to.
type Ledger interface {
	Record(rec models.HistoryRecord) error
	UpdateStatus(id string, status models.Status, detail string) error
	SetDetails(id, title string, itemCount int) error
}

// OrchestratorOpts configures an [Orchestrator].
type OrchestratorOpts struct {
	Engine services.Engine
	Ledger Ledger // optional
	Sink   Sink   // optional
	Logger *log.Logger

	DefaultDestination string
	DefaultFormat      string
	OutputTemplate     string
	SaveThumbnails     bool

	PollInterval       time.Duration
	PausedEmitInterval time.Duration

	// Now is the clock used for event timestamps; defaults to [time.Now].
	Now func() time.Time
}

// Orchestrator runs download jobs against an [services.Engine], one goroutine per job.
type Orchestrator struct {
	engine services.Engine
	ledger Ledger
	sink   Sink
	logger *log.Logger

	defaultDestination string
	defaultFormat      string
	outputTemplate     string
	saveThumbnails     bool

	pollInterval       time.Duration
	pausedEmitInterval time.Duration
	now                func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*activeJob
	closed bool
	wg     sync.WaitGroup
}

// activeJob is the orchestrator's view of a running job.
type activeJob struct {
	id      string
	control *controlState
	cancel  context.CancelFunc
	logger  *log.Logger

	mu  sync.Mutex
	job models.Job
}

// NewOrchestrator creates an orchestrator. An engine is required.
func NewOrchestrator(opts OrchestratorOpts) (*Orchestrator, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: download engine not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.OutputTemplate == "" {
		opts.OutputTemplate = defaultOutputTemplate
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PausedEmitInterval <= 0 {
		opts.PausedEmitInterval = defaultPausedEmitInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		engine:             opts.Engine,
		ledger:             opts.Ledger,
		sink:               opts.Sink,
		logger:             opts.Logger,
		defaultDestination: opts.DefaultDestination,
		defaultFormat:      opts.DefaultFormat,
		outputTemplate:     opts.OutputTemplate,
		saveThumbnails:     opts.SaveThumbnails,
		pollInterval:       opts.PollInterval,
		pausedEmitInterval: opts.PausedEmitInterval,
		now:                opts.Now,
		jobs:               make(map[string]*activeJob),
	}, nil
}

// Start validates req, registers a job and runs it on its own goroutine. It returns the job ID without waiting
// for any engine work.
func (o *Orchestrator) Start(req models.JobRequest) (string, error) {
	req.SourceLocator = strings.TrimSpace(req.SourceLocator)
	if req.SourceLocator == "" {
		return "", fmt.Errorf("%w: source locator is required", shared.ErrInvalidInput)
	}
	if req.Destination == "" {
		req.Destination = o.defaultDestination
	}
	if req.FormatSpec == "" {
		req.FormatSpec = o.defaultFormat
	}
	req.SaveExtraAssets = req.SaveExtraAssets || o.saveThumbnails

	id := shared.GenerateID()
	ctx, cancel := context.WithCancel(context.Background())
	job := &activeJob{
		id:      id,
		control: newControlState(),
		cancel:  cancel,
		logger:  o.logger.With("job", id),
		job:     *models.NewJob(id, req, o.now()),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel()
		return "", fmt.Errorf("%w: orchestrator is shut down", shared.ErrServiceUnavailable)
	}
	o.jobs[id] = job
	o.wg.Add(1)
	o.mu.Unlock()

	if o.ledger != nil {
		if err := o.ledger.Record(job.job.HistoryRecord()); err != nil {
			job.logger.Error("failed to record job start", "error", err)
		}
	}

	job.logger.Info("job started", "source", req.SourceLocator, "items", req.ItemSelection.String())
	go o.run(ctx, job)
	return id, nil
}

// RequestPause asks the job to hold at its next progress report. Repeated calls are no-ops, as is pausing a job
// that is being stopped.
func (o *Orchestrator) RequestPause(id string) error {
	job, err := o.lookup(id)
	if err != nil {
		return err
	}
	job.control.requestPause()
	job.logger.Debug("pause requested")
	return nil
}

// RequestResume releases a paused job. Resuming a running job is a no-op.
func (o *Orchestrator) RequestResume(id string) error {
	job, err := o.lookup(id)
	if err != nil {
		return err
	}
	job.control.requestResume()
	job.logger.Debug("resume requested")
	return nil
}

// RequestStop cancels the job. The job ends in [models.StatusStopped] once the engine unwinds.
func (o *Orchestrator) RequestStop(id string) error {
	job, err := o.lookup(id)
	if err != nil {
		return err
	}
	job.control.requestStop()
	job.cancel()
	job.logger.Info("stop requested")
	return nil
}

// Jobs returns a snapshot of the active jobs ordered by creation time.
func (o *Orchestrator) Jobs() []models.Job {
	o.mu.RLock()
	jobs := make([]models.Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j.snapshot())
	}
	o.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID < jobs[b].ID
		}
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs
}

// Job returns a snapshot of one active job.
func (o *Orchestrator) Job(id string) (models.Job, error) {
	job, err := o.lookup(id)
	if err != nil {
		return models.Job{}, err
	}
	return job.snapshot(), nil
}

// Wait blocks until every started job has reached a terminal status.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown refuses new jobs, stops the active ones and waits for them to finish or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if err := o.RequestStop(id); err != nil && !errors.Is(err, shared.ErrJobNotFound) {
			o.logger.Warn("failed to stop job", "job", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookup(id string) (*activeJob, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	job, ok := o.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, nil
}

// run is the job goroutine: started event, engine call, classification, terminal bookkeeping.
func (o *Orchestrator) run(ctx context.Context, job *activeJob) {
	defer o.wg.Done()
	defer job.cancel()

	o.emit(job, startedEvent(job.id, o.now()))

	err := o.download(ctx, job)
	status, detail := classify(err, job.control.cancelled())
	switch status {
	case models.StatusError:
		job.logger.Error("job failed", "error", fmt.Errorf("%w: %w", shared.ErrEngineFailure, err))
	default:
		job.logger.Info("job finished", "status", status)
	}

	o.finish(job, status, detail)
}

// download calls the engine, converting a panic into an error.
func (o *Orchestrator) download(ctx context.Context, job *activeJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	snap := job.snapshot()
	req := services.DownloadRequest{
		SourceLocator:  snap.SourceLocator,
		FormatSpec:     snap.FormatSpec,
		OutputTemplate: outputPath(snap.Destination, o.outputTemplate),
		ItemSelection:  snap.ItemSelection.EngineArg(),
		WriteThumbnail: snap.SaveExtraAssets,
	}
	return o.engine.Download(ctx, req, o.progressHook(job))
}

// classify maps the engine's return value to a terminal status and detail.
func classify(err error, cancelRequested bool) (models.Status, string) {
	switch {
	case err == nil:
		return models.StatusCompleted, ""
	case cancelRequested, errors.Is(err, shared.ErrCancelled):
		return models.StatusStopped, ""
	default:
		return models.StatusError, err.Error()
	}
}

// finish persists the outcome, drops the job from the active map and emits the terminal event.
func (o *Orchestrator) finish(job *activeJob, status models.Status, detail string) {
	snap := job.snapshot()

	if o.ledger != nil {
		if snap.Title != "" || snap.ItemCount > 0 {
			if err := o.ledger.SetDetails(job.id, snap.Title, snap.ItemCount); err != nil {
				job.logger.Error("failed to record job details", "error", err)
			}
		}
		if err := o.ledger.UpdateStatus(job.id, status, detail); err != nil {
			job.logger.Error("failed to record job outcome", "error", err)
		}
	}

	o.mu.Lock()
	delete(o.jobs, job.id)
	o.mu.Unlock()

	o.emit(job, terminalEvent(job.id, status, detail, o.now()))
}

// emit forwards ev to the sink if the job may move to its status.
func (o *Orchestrator) emit(job *activeJob, ev models.Event) {
	if !job.transition(ev) {
		job.logger.Warn("dropping event with illegal transition", "status", ev.Status)
		return
	}
	if o.sink != nil {
		o.sink(ev)
	}
}

func (j *activeJob) snapshot() models.Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	job := j.job
	job.ItemSelection = append(models.ItemSelection(nil), j.job.ItemSelection...)
	return job
}

func outputPath(destination, template string) string {
	if destination == "" {
		return template
	}
	return filepath.Join(shared.ExpandPath(destination), template)
}
