package tasks

import (
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	"golang.org/x/time/rate"
)

// progressHook returns the hook handed to the engine for job.
//
// Cancellation is delivered by returning [shared.ErrCancelled], which makes the engine abort. Pause is delivered
// by not returning: the engine stays blocked inside the hook until resume or stop.
func (o *Orchestrator) progressHook(job *activeJob) services.ProgressHook {
	ctl := job.control

	return func(p services.Progress) error {
		if ctl.cancelled() {
			return shared.ErrCancelled
		}
		if ctl.paused() {
			if err := o.waitWhilePaused(job); err != nil {
				return err
			}
		}

		job.noteDetails(p)

		switch p.Status {
		case services.PhaseDownloading:
			ev := Aggregate(p, &ctl.samples, o.now())
			ev.JobID = job.id
			o.emit(job, ev)
		case services.PhaseFinished:
			o.emit(job, processingEvent(job.id, p, o.now()))
		}
		return nil
	}
}

// waitWhilePaused blocks until the pause flag clears or a stop arrives.
//
// A paused event is emitted on entry and then at most once per pausedEmitInterval.
func (o *Orchestrator) waitWhilePaused(job *activeJob) error {
	ctl := job.control
	every := rate.Sometimes{Interval: o.pausedEmitInterval}

	poll := time.NewTicker(o.pollInterval)
	defer poll.Stop()

	for {
		if ctl.cancelled() {
			return shared.ErrCancelled
		}
		if !ctl.paused() {
			break
		}

		every.Do(func() { o.emit(job, pausedEvent(job.id, o.now())) })

		select {
		case <-ctl.wake:
		case <-poll.C:
		}
	}

	if ctl.cancelled() {
		return shared.ErrCancelled
	}
	job.logger.Debug("resumed")
	return nil
}

// noteDetails keeps the playlist title and size the engine reports.
func (j *activeJob) noteDetails(p services.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if p.PlaylistTitle != "" {
		j.job.Title = p.PlaylistTitle
	}
	if p.ItemCount > 0 {
		j.job.ItemCount = p.ItemCount
	}
}

// transition applies the status of ev to the job, reporting whether the move is allowed.
func (j *activeJob) transition(ev models.Event) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if ev.Status != j.job.Status && !j.job.Status.CanTransition(ev.Status) {
		return false
	}
	j.job.Status = ev.Status
	if ev.Status == models.StatusError {
		j.job.ErrorDetail = ev.Detail
	}
	return true
}
