// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/hoopfuse/internal/adapters/mq/queue"
	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/ingest"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	FuseDependencies
	JobDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	fuseHandler   *FuseHandler
	jobsHandler   *JobsHandler

	maxRequestBytes int64
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxRequestBytes: defaultMaxRequestBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.fuseHandler = NewFuseHandler(deps, s.maxRequestBytes)
	s.jobsHandler = NewJobsHandler(deps, s.maxRequestBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /fuse", MetricsMiddleware(s.fuseHandler.HandleFuse, "fuse"))
	mux.HandleFunc("POST /jobs", MetricsMiddleware(s.jobsHandler.HandleSubmit, "jobs"))
	mux.HandleFunc("GET /jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleGet, "job"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeRequest reads a bounded fusion request body.
func decodeRequest(w http.ResponseWriter, r *http.Request, op string, limit int64, defaults model.Options) (*ingest.Request, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind(op, ErrTooLarge, err)
		}
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	req, err := ingest.DecodeWith(bytes.NewReader(body), defaults)
	if err != nil {
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	return req, nil
}

// respondError maps domain and pipeline errors onto status codes.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ingest.ErrInputData),
		errors.Is(err, model.ErrConfiguration):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
