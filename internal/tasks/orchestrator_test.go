package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	tu "github.com/desertthunder/ytq/internal/testing"
)

const waitTimeout = 5 * time.Second

func newTestOrchestrator(t *testing.T, engine services.Engine) (*Orchestrator, *tu.EventRecorder, *tu.MemoryLedger) {
	t.Helper()

	rec := tu.NewEventRecorder()
	ledger := tu.NewMemoryLedger()
	o, err := NewOrchestrator(OrchestratorOpts{
		Engine:             engine,
		Ledger:             ledger,
		Sink:               rec.Record,
		DefaultDestination: "/media",
		DefaultFormat:      "best",
		PollInterval:       5 * time.Millisecond,
		PausedEmitInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := o.Shutdown(ctx); err != nil {
			t.Errorf("shutdown did not finish: %v", err)
		}
	})
	return o, rec, ledger
}

func mustStart(t *testing.T, o *Orchestrator, req models.JobRequest) string {
	t.Helper()
	id, err := o.Start(req)
	if err != nil {
		t.Fatalf("failed to start job: %v", err)
	}
	return id
}

// assertLegalTransitions checks every consecutive pair of statuses against the lifecycle.
func assertLegalTransitions(t *testing.T, statuses []models.Status) {
	t.Helper()
	if len(statuses) == 0 || statuses[0] != models.StatusStarted {
		t.Fatalf("expected first status to be started, got %v", statuses)
	}
	for i := 1; i < len(statuses); i++ {
		prev, next := statuses[i-1], statuses[i]
		if prev != next && !prev.CanTransition(next) {
			t.Errorf("illegal transition %s -> %s in %v", prev, next, statuses)
		}
	}
	terminal := 0
	for _, s := range statuses {
		if s.IsTerminal() {
			terminal++
		}
	}
	if terminal != 1 || !statuses[len(statuses)-1].IsTerminal() {
		t.Errorf("expected exactly one terminal status at the end, got %v", statuses)
	}
}

func TestNewOrchestrator(t *testing.T) {
	if _, err := NewOrchestrator(OrchestratorOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable without engine, got %v", err)
	}

	o, err := NewOrchestrator(OrchestratorOpts{Engine: tu.NewScriptedEngine()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.pollInterval != defaultPollInterval || o.pausedEmitInterval != defaultPausedEmitInterval {
		t.Errorf("expected default intervals, got %v and %v", o.pollInterval, o.pausedEmitInterval)
	}
	if o.outputTemplate != defaultOutputTemplate {
		t.Errorf("expected default output template, got %q", o.outputTemplate)
	}
}

func TestOrchestrator(t *testing.T) {
	t.Run("end to end playlist download", func(t *testing.T) {
		first := tu.Downloading("Intro", 1, 2, 50, 100, 50)
		first.PlaylistTitle = "Road Trip"
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{Events: []services.Progress{
			first,
			tu.Downloading("Intro", 1, 2, 100, 100, 50),
			tu.Downloading("Outro", 2, 2, 10, 100, 50),
		}})
		o, rec, ledger := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1", ItemSelection: models.ItemSelection{0, 2}})
		final := rec.WaitTerminal(t, id, waitTimeout)
		o.Wait()

		if final.Status != models.StatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", final.Status, final.Detail)
		}

		want := []models.Status{
			models.StatusStarted,
			models.StatusDownloading,
			models.StatusDownloading,
			models.StatusDownloading,
			models.StatusCompleted,
		}
		if got := rec.Statuses(id); !slices.Equal(got, want) {
			t.Fatalf("expected statuses %v, got %v", want, got)
		}

		events := rec.For(id)
		if events[1].Percent != 0.5 || events[2].Percent != 1.0 {
			t.Errorf("expected percent 0.5 then 1.0 for item 1, got %v then %v", events[1].Percent, events[2].Percent)
		}
		if events[1].ItemIndex != 1 || events[3].ItemIndex != 2 {
			t.Errorf("unexpected item indices %d, %d", events[1].ItemIndex, events[3].ItemIndex)
		}

		reqs := engine.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected one engine call, got %d", len(reqs))
		}
		if reqs[0].ItemSelection != "1,3" {
			t.Errorf("expected engine item selection 1,3, got %q", reqs[0].ItemSelection)
		}
		if reqs[0].FormatSpec != "best" {
			t.Errorf("expected default format, got %q", reqs[0].FormatSpec)
		}
		if want := filepath.Join("/media", defaultOutputTemplate); reqs[0].OutputTemplate != want {
			t.Errorf("expected output template %q, got %q", want, reqs[0].OutputTemplate)
		}

		got, ok := ledger.Get(id)
		if !ok {
			t.Fatal("expected ledger record")
		}
		if got.Status != models.StatusCompleted || got.ErrorDetail != "" {
			t.Errorf("expected completed record, got %+v", got)
		}
		if got.Title != "Road Trip" || got.ItemCount != 2 {
			t.Errorf("expected playlist details in ledger, got title=%q count=%d", got.Title, got.ItemCount)
		}
		if got.ItemSelection != "1,3" || got.Destination != "/media" {
			t.Errorf("expected request fields in ledger, got %+v", got)
		}

		if len(o.Jobs()) != 0 {
			t.Error("expected no active jobs after completion")
		}
	})

	t.Run("finished items become processing events", func(t *testing.T) {
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{Events: []services.Progress{
			tu.Downloading("Intro", 1, 1, 100, 100, 50),
			tu.Finished("Intro", 1, 1),
			{Status: "postprocess"},
		}})
		o, rec, _ := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		rec.WaitTerminal(t, id, waitTimeout)

		want := []models.Status{
			models.StatusStarted,
			models.StatusDownloading,
			models.StatusProcessing,
			models.StatusCompleted,
		}
		if got := rec.Statuses(id); !slices.Equal(got, want) {
			t.Fatalf("expected statuses %v, got %v", want, got)
		}
		processing := rec.For(id)[2]
		if processing.ItemIndex != 1 || processing.ItemName != "Intro" || processing.Percent != 1 {
			t.Errorf("unexpected processing event %+v", processing)
		}
	})

	t.Run("concurrent jobs with one stopped", func(t *testing.T) {
		holds := []chan struct{}{make(chan struct{}), make(chan struct{}), make(chan struct{})}
		sources := []string{"pl-a", "pl-b", "pl-c"}
		engine := tu.NewScriptedEngine()
		for i, src := range sources {
			engine.Add(src, tu.Script{
				Events: []services.Progress{tu.Downloading(src, 1, 1, 10, 100, 20)},
				Hold:   holds[i],
			})
		}
		o, rec, ledger := newTestOrchestrator(t, engine)

		ids := make([]string, len(sources))
		for i, src := range sources {
			ids[i] = mustStart(t, o, models.JobRequest{SourceLocator: src})
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			t.Fatalf("expected distinct job IDs, got %v", ids)
		}
		for _, id := range ids {
			rec.WaitFor(t, id, models.StatusDownloading, waitTimeout)
		}
		if n := len(o.Jobs()); n != 3 {
			t.Fatalf("expected 3 active jobs, got %d", n)
		}

		if err := o.RequestStop(ids[1]); err != nil {
			t.Fatalf("unexpected stop error: %v", err)
		}
		if got := rec.WaitTerminal(t, ids[1], waitTimeout); got.Status != models.StatusStopped {
			t.Fatalf("expected job 2 stopped, got %s", got.Status)
		}

		close(holds[0])
		close(holds[2])
		for _, i := range []int{0, 2} {
			if got := rec.WaitTerminal(t, ids[i], waitTimeout); got.Status != models.StatusCompleted {
				t.Errorf("expected job %d completed, got %s (%s)", i+1, got.Status, got.Detail)
			}
		}
		o.Wait()

		wantStatus := []models.Status{models.StatusCompleted, models.StatusStopped, models.StatusCompleted}
		for i, id := range ids {
			got, ok := ledger.Get(id)
			if !ok {
				t.Fatalf("expected ledger record for job %d", i+1)
			}
			if got.Status != wantStatus[i] {
				t.Errorf("expected ledger status %s for job %d, got %s", wantStatus[i], i+1, got.Status)
			}
			assertLegalTransitions(t, rec.Statuses(id))
		}
		if n := len(ledger.Records()); n != 3 {
			t.Errorf("expected 3 ledger records, got %d", n)
		}
	})

	t.Run("double pause then single resume", func(t *testing.T) {
		hold := make(chan struct{})
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{
			Events: []services.Progress{tu.Downloading("Intro", 1, 1, 10, 100, 20)},
			Hold:   hold,
		})
		o, rec, _ := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		rec.WaitFor(t, id, models.StatusDownloading, waitTimeout)

		for range 2 {
			if err := o.RequestPause(id); err != nil {
				t.Fatalf("unexpected pause error: %v", err)
			}
		}
		rec.WaitFor(t, id, models.StatusPaused, waitTimeout)

		job, err := o.Job(id)
		if err != nil {
			t.Fatalf("unexpected lookup error: %v", err)
		}
		if job.Status != models.StatusPaused {
			t.Errorf("expected paused job snapshot, got %s", job.Status)
		}

		if err := o.RequestResume(id); err != nil {
			t.Fatalf("unexpected resume error: %v", err)
		}
		rec.WaitUntil(t, id, waitTimeout, func(events []models.Event) bool {
			seenPause := false
			for _, ev := range events {
				if ev.Status == models.StatusPaused {
					seenPause = true
				}
				if seenPause && ev.Status == models.StatusDownloading {
					return true
				}
			}
			return false
		})

		close(hold)
		if got := rec.WaitTerminal(t, id, waitTimeout); got.Status != models.StatusCompleted {
			t.Fatalf("expected completed, got %s", got.Status)
		}
		assertLegalTransitions(t, rec.Statuses(id))
	})

	t.Run("stop while paused wins over later pause and resume", func(t *testing.T) {
		hold := make(chan struct{})
		defer close(hold)
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{
			Events: []services.Progress{tu.Downloading("Intro", 1, 1, 10, 100, 20)},
			Hold:   hold,
		})
		o, rec, ledger := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		rec.WaitFor(t, id, models.StatusDownloading, waitTimeout)

		if err := o.RequestPause(id); err != nil {
			t.Fatalf("unexpected pause error: %v", err)
		}
		rec.WaitFor(t, id, models.StatusPaused, waitTimeout)

		stoppedAt := len(rec.For(id))
		if err := o.RequestStop(id); err != nil {
			t.Fatalf("unexpected stop error: %v", err)
		}
		for _, err := range []error{o.RequestPause(id), o.RequestResume(id)} {
			if err != nil && !errors.Is(err, shared.ErrJobNotFound) {
				t.Errorf("unexpected control error after stop: %v", err)
			}
		}

		final := rec.WaitTerminal(t, id, waitTimeout)
		if final.Status != models.StatusStopped {
			t.Fatalf("expected stopped, got %s", final.Status)
		}
		for _, ev := range rec.For(id)[stoppedAt:] {
			if ev.Status == models.StatusDownloading {
				t.Errorf("unexpected downloading event after stop: %v", rec.Statuses(id))
			}
		}
		assertLegalTransitions(t, rec.Statuses(id))

		if got, _ := ledger.Get(id); got.Status != models.StatusStopped {
			t.Errorf("expected stopped ledger record, got %s", got.Status)
		}
		if err := o.RequestStop(id); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound for finished job, got %v", err)
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		engine := tu.NewScriptedEngine().
			Add("broken", tu.Script{
				Events: []services.Progress{tu.Downloading("Intro", 1, 1, 10, 100, 20)},
				Err:    errors.New("requested format is not available"),
			}).
			Add("fine", tu.Script{Events: []services.Progress{tu.Downloading("Intro", 1, 1, 100, 100, 20)}})
		o, rec, ledger := newTestOrchestrator(t, engine)

		broken := mustStart(t, o, models.JobRequest{SourceLocator: "broken"})
		fine := mustStart(t, o, models.JobRequest{SourceLocator: "fine"})

		final := rec.WaitTerminal(t, broken, waitTimeout)
		if final.Status != models.StatusError || final.Detail != "requested format is not available" {
			t.Errorf("expected error with detail, got %s %q", final.Status, final.Detail)
		}
		if got := rec.WaitTerminal(t, fine, waitTimeout); got.Status != models.StatusCompleted {
			t.Errorf("expected sibling job to complete, got %s", got.Status)
		}

		got, _ := ledger.Get(broken)
		if got.Status != models.StatusError || got.ErrorDetail != "requested format is not available" {
			t.Errorf("expected error recorded in ledger, got %+v", got)
		}
	})

	t.Run("engine panic is contained", func(t *testing.T) {
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{Panic: "nil map write"})
		o, rec, _ := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		final := rec.WaitTerminal(t, id, waitTimeout)
		if final.Status != models.StatusError || !strings.Contains(final.Detail, "nil map write") {
			t.Errorf("expected error mentioning the panic, got %s %q", final.Status, final.Detail)
		}
	})

	t.Run("ledger failures do not fail the job", func(t *testing.T) {
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{})
		o, rec, ledger := newTestOrchestrator(t, engine)
		ledger.Err = errors.New("disk full")

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		if got := rec.WaitTerminal(t, id, waitTimeout); got.Status != models.StatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		engine := tu.NewScriptedEngine()
		o, rec, ledger := newTestOrchestrator(t, engine)

		if _, err := o.Start(models.JobRequest{SourceLocator: "   "}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		o.Wait()
		if len(rec.Events()) != 0 || len(ledger.Records()) != 0 || len(engine.Requests()) != 0 {
			t.Error("expected no job to be created")
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(t, tu.NewScriptedEngine())

		for name, call := range map[string]func(string) error{
			"pause":  o.RequestPause,
			"resume": o.RequestResume,
			"stop":   o.RequestStop,
		} {
			if err := call("missing"); !errors.Is(err, shared.ErrJobNotFound) {
				t.Errorf("%s: expected ErrJobNotFound, got %v", name, err)
			}
		}
		if _, err := o.Job("missing"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("shutdown stops active jobs and refuses new ones", func(t *testing.T) {
		hold := make(chan struct{})
		defer close(hold)
		engine := tu.NewScriptedEngine().Add("pl1", tu.Script{Hold: hold})
		o, rec, _ := newTestOrchestrator(t, engine)

		id := mustStart(t, o, models.JobRequest{SourceLocator: "pl1"})
		rec.WaitFor(t, id, models.StatusDownloading, waitTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := o.Shutdown(ctx); err != nil {
			t.Fatalf("unexpected shutdown error: %v", err)
		}

		if got := rec.WaitTerminal(t, id, waitTimeout); got.Status != models.StatusStopped {
			t.Errorf("expected stopped, got %s", got.Status)
		}
		if _, err := o.Start(models.JobRequest{SourceLocator: "pl1"}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable after shutdown, got %v", err)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		cancelled  bool
		wantStatus models.Status
		wantDetail string
	}{
		{name: "nil error", wantStatus: models.StatusCompleted},
		{name: "cancel sentinel", err: shared.ErrCancelled, wantStatus: models.StatusStopped},
		{name: "wrapped cancel", err: errors.Join(errors.New("abort"), shared.ErrCancelled), wantStatus: models.StatusStopped},
		{name: "cancel requested", err: errors.New("killed"), cancelled: true, wantStatus: models.StatusStopped},
		{name: "engine failure", err: errors.New("HTTP Error 403"), wantStatus: models.StatusError, wantDetail: "HTTP Error 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := classify(tt.err, tt.cancelled)
			if status != tt.wantStatus || detail != tt.wantDetail {
				t.Errorf("classify() = %s %q, want %s %q", status, detail, tt.wantStatus, tt.wantDetail)
			}
		})
	}
}
