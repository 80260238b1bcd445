// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fightlog/internal/adapters/repository"
	service "github.com/okian/fightlog/internal/app"
	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
)

const (
	defaultListLimit   = 20
	defaultMaxList     = 100
	defaultMaxBodySize = 32 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a request; duplicate reports an already seen id.
	Submit(ctx context.Context, req model.Job) (id string, duplicate bool, err error)

	// Analyze runs a request synchronously.
	Analyze(ctx context.Context, req model.Job) (*results.Result, dispatch.Stats, error)

	// Read operations expose stored reports.
	Report(ctx context.Context, id string) (model.Report, error)
	Reports(ctx context.Context, limit int) ([]model.Report, error)

	Profiles() []string
	DefaultProfile() string
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxList     int
	maxBodySize int64

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analysesHandler *AnalysesHandler
	profilesHandler *ProfilesHandler
}

// Option configures the Server.
type Option func(*Server)

// WithMaxListLimit caps the limit accepted by GET /analyses.
func WithMaxListLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxList = n
		}
	}
}

// WithMaxBodySize caps the size of a submitted request body.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxList: defaultMaxList, maxBodySize: defaultMaxBodySize}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.analysesHandler = NewAnalysesHandler(deps, s.maxList, s.maxBodySize)
	s.profilesHandler = NewProfilesHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /profiles", MetricsMiddleware(s.profilesHandler.HandleList, "profiles"))
	mux.HandleFunc("POST /analyses", MetricsMiddleware(s.analysesHandler.HandlePost, "analyses"))
	mux.HandleFunc("GET /analyses", MetricsMiddleware(s.analysesHandler.HandleList, "analyses"))
	mux.HandleFunc("GET /analyses/{id}", MetricsMiddleware(s.analysesHandler.HandleGet, "analysis"))
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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

// classify maps an upstream error to an API kind, status and code.
func classify(err error) (kind error, status int, code string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, repository.ErrInvalidLimit):
		return ErrBadRequest, http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure, http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound, http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable, http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout, http.StatusGatewayTimeout, "timeout"
	default:
		return ErrInternal, http.StatusInternalServerError, "internal_error"
	}
}

func fail(w http.ResponseWriter, op string, err error) {
	kind, status, code := classify(err)
	writeError(w, status, code, WrapKind(op, kind, err))
}
