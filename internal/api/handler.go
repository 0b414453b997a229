// Package api exposes the control surface: job listing, manual run
// triggering, and run history.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lakemerge/internal/domain"
	"lakemerge/internal/service/runner"
)

// Handler serves the control API.
type Handler struct {
	runner *runner.Runner
	runs   domain.JobRunRepository
	jobs   map[string]domain.Job
	order  []string
	logger *slog.Logger
}

// NewHandler creates a Handler for the given jobs.
func NewHandler(r *runner.Runner, runs domain.JobRunRepository, jobs []domain.Job, logger *slog.Logger) *Handler {
	byName := make(map[string]domain.Job, len(jobs))
	order := make([]string, 0, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
		order = append(order, j.Name)
	}
	return &Handler{runner: r, runs: runs, jobs: byName, order: order, logger: logger}
}

// jobResponse is the JSON shape of a job definition.
type jobResponse struct {
	Name     string   `json:"name"`
	Strategy string   `json:"strategy"`
	Schedule string   `json:"schedule,omitempty"`
	Sources  []string `json:"sources"`
	Target   string   `json:"target"`
	Keys     []string `json:"keys,omitempty"`
}

// runResponse is the JSON shape of a job run.
type runResponse struct {
	ID           string     `json:"id"`
	JobName      string     `json:"job_name"`
	Status       string     `json:"status"`
	TriggerType  string     `json:"trigger_type"`
	RowsRead     int64      `json:"rows_read"`
	RowsWritten  int64      `json:"rows_written"`
	Inserted     int64      `json:"inserted"`
	Updated      int64      `json:"updated"`
	Unchanged    int64      `json:"unchanged"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// Health implements GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListJobs implements GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	out := make([]jobResponse, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, jobToAPI(h.jobs[name]))
	}
	writeJSON(w, http.StatusOK, out)
}

// TriggerRun implements POST /api/jobs/{name}/run. The run executes
// synchronously; the response carries the finished run either way, with 422
// signalling a data failure.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		writeError(w, domain.ErrNotFound("job %q not found", name))
		return
	}
	run, err := h.runner.Run(r.Context(), job, domain.TriggerTypeManual)
	if err != nil {
		if run == nil {
			writeError(w, err)
			return
		}
		// The run is recorded as FAILED; surface both the record and status.
		status := statusForError(err)
		writeJSON(w, status, runToAPI(*run))
		return
	}
	writeJSON(w, http.StatusOK, runToAPI(*run))
}

// ListRuns implements GET /api/runs with optional job, status, and limit
// query parameters.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var filter domain.JobRunFilter
	if v := r.URL.Query().Get("job"); v != "" {
		filter.JobName = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	runs, err := h.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runToAPI(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun implements GET /api/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runToAPI(*run))
}

func jobToAPI(j domain.Job) jobResponse {
	sources := make([]string, len(j.Sources))
	for i, s := range j.Sources {
		sources[i] = s.String()
	}
	return jobResponse{
		Name:     j.Name,
		Strategy: j.Strategy,
		Schedule: j.Schedule,
		Sources:  sources,
		Target:   j.Target.String(),
		Keys:     j.Keys,
	}
}

func runToAPI(run domain.JobRun) runResponse {
	return runResponse{
		ID:           run.ID,
		JobName:      run.JobName,
		Status:       run.Status,
		TriggerType:  run.TriggerType,
		RowsRead:     run.Stats.RowsRead,
		RowsWritten:  run.Stats.RowsWritten,
		Inserted:     run.Stats.Inserted,
		Updated:      run.Stats.Updated,
		Unchanged:    run.Stats.Unchanged,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		ErrorMessage: run.ErrorMessage,
	}
}
