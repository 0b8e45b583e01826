package api

import (
	"context"
	"net/http"

	"github.com/okian/hoopfuse/internal/domain/model"
)

// FuseDependencies defines the interface for synchronous fusion.
type FuseDependencies interface {
	Fuse(ctx context.Context, s *model.Signals, opts model.Options) ([]model.GameEvent, error)
	Defaults() model.Options
}

// FuseHandler handles synchronous fusion requests.
type FuseHandler struct {
	deps  FuseDependencies
	limit int64
}

// NewFuseHandler creates a new fuse handler.
func NewFuseHandler(deps FuseDependencies, limit int64) *FuseHandler {
	return &FuseHandler{deps: deps, limit: limit}
}

type fuseResponse struct {
	Events []model.GameEvent `json:"events"`
}

// HandleFuse handles POST /fuse requests.
func (h *FuseHandler) HandleFuse(w http.ResponseWriter, r *http.Request) {
	const op = "api.fuse"
	req, err := decodeRequest(w, r, op, h.limit, h.deps.Defaults())
	if err != nil {
		respondError(w, err)
		return
	}
	events, err := h.deps.Fuse(r.Context(), req.Signals, req.Options)
	if err != nil {
		respondError(w, Wrap(op, err))
		return
	}
	if events == nil {
		events = []model.GameEvent{}
	}
	writeJSON(w, http.StatusOK, fuseResponse{Events: events})
}
