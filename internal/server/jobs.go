package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

const maxRequestBody = 1 << 20

// JobController is the part of the orchestrator the API drives.
type JobController interface {
	Start(req models.JobRequest) (string, error)
	RequestPause(id string) error
	RequestResume(id string) error
	RequestStop(id string) error
	Jobs() []models.Job
	Job(id string) (models.Job, error)
}

// HistoryLister lists ledger records, newest first.
type HistoryLister interface {
	List() ([]models.HistoryRecord, error)
}

// EventSource hands out status event subscriptions.
type EventSource interface {
	Subscribe() (<-chan models.Event, func())
}

// JobsHandler serves the job control API and the status event stream.
type JobsHandler struct {
	jobs    JobController
	history HistoryLister
	events  EventSource
	logger  *log.Logger
	mux     *http.ServeMux
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	SourceLocator  string `json:"source_locator"`
	Destination    string `json:"destination"`
	Items          string `json:"items"`
	Format         string `json:"format"`
	SaveThumbnails bool   `json:"save_thumbnails"`
}

type createJobResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewJobsHandler creates the API handler. history and events may be nil, in which case their routes return 503.
func NewJobsHandler(jobs JobController, history HistoryLister, events EventSource, logger *log.Logger) *JobsHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	h := &JobsHandler{jobs: jobs, history: history, events: events, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /healthz", h.health)
	h.mux.HandleFunc("POST /jobs", h.create)
	h.mux.HandleFunc("GET /jobs", h.list)
	h.mux.HandleFunc("GET /jobs/{id}", h.get)
	h.mux.HandleFunc("POST /jobs/{id}/{action}", h.control)
	h.mux.HandleFunc("GET /history", h.listHistory)
	h.mux.HandleFunc("GET /events", h.stream)
	return h
}

// Routes implements [Handler].
func (h *JobsHandler) Routes() []string {
	return []string{
		"GET /healthz",
		"POST /jobs",
		"GET /jobs",
		"GET /jobs/{id}",
		"POST /jobs/{id}/{action}",
		"GET /history",
		"GET /events",
	}
}

// ServeHTTP implements [http.Handler].
func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *JobsHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *JobsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body CreateJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", shared.ErrInvalidInput, err))
		return
	}

	items, err := models.ParseItemSelection(body.Items)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	id, err := h.jobs.Start(models.JobRequest{
		SourceLocator:   body.SourceLocator,
		Destination:     body.Destination,
		ItemSelection:   items,
		FormatSpec:      body.Format,
		SaveExtraAssets: body.SaveThumbnails,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("job started", "job", id, "source", body.SourceLocator)
	writeJSON(w, http.StatusCreated, createJobResponse{ID: id})
}

func (h *JobsHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.jobs.Jobs())
}

func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Job(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobsHandler) control(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var err error
	switch r.PathValue("action") {
	case "pause":
		err = h.jobs.RequestPause(id)
	case "resume":
		err = h.jobs.RequestResume(id)
	case "stop":
		err = h.jobs.RequestStop(id)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *JobsHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, fmt.Errorf("%w: history is not configured", shared.ErrServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var status models.Status
	if raw := query.Get("status"); raw != "" {
		s, ok := models.ParseStatus(raw)
		if !ok {
			h.writeError(w, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, raw))
			return
		}
		status = s
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, fmt.Errorf("%w: invalid limit %q", shared.ErrInvalidInput, raw))
			return
		}
		limit = n
	}

	records, err := h.history.List()
	if err != nil {
		h.writeError(w, err)
		return
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
	writeJSON(w, http.StatusOK, filtered)
}

// stream writes status events as server-sent events until the client goes away or the source closes.
func (h *JobsHandler) stream(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, fmt.Errorf("%w: event stream is not configured", shared.ErrServiceUnavailable))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, errors.New("streaming unsupported"))
		return
	}

	jobID := r.URL.Query().Get("job")
	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if jobID != "" && ev.JobID != jobID {
				continue
			}

			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to encode event", "job", ev.JobID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *JobsHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrJobNotFound), errors.Is(err, shared.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
