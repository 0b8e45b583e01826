package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/domain/model"
)

// JobDependencies defines the interface for asynchronous fusion jobs.
type JobDependencies interface {
	Submit(ctx context.Context, id string, s *model.Signals, opts model.Options) (string, bool, error)
	Result(ctx context.Context, id string) (repository.Result, error)
	Defaults() model.Options
}

// JobsHandler handles job submission and lookup.
type JobsHandler struct {
	deps  JobDependencies
	limit int64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobDependencies, limit int64) *JobsHandler {
	return &JobsHandler{deps: deps, limit: limit}
}

type ackResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmit handles POST /jobs requests.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	req, err := decodeRequest(w, r, op, h.limit, h.deps.Defaults())
	if err != nil {
		respondError(w, err)
		return
	}
	id, duplicate, err := h.deps.Submit(r.Context(), strings.TrimSpace(req.JobID), req.Signals, req.Options)
	if err != nil {
		respondError(w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{JobID: id, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/jobs/"+id)
	writeJSON(w, http.StatusAccepted, ackResponse{JobID: id, Status: string(repository.StatusQueued)})
}

// HandleGet handles GET /jobs/{id} requests.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	id := r.PathValue("id")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, NewKind(op, ErrBadRequest))
		return
	}
	result, err := h.deps.Result(r.Context(), id)
	if err != nil {
		respondError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
