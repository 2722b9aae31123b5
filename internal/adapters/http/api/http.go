// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/rinktime/internal/adapters/repository"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
)

// Submission acknowledges a posted game log.
type Submission struct {
	GameID    string `json:"game_id"`
	JobID     string `json:"job_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit parses a game log and queues it for reconstruction.
	Submit(ctx context.Context, body io.Reader) (Submission, error)

	Game(ctx context.Context, gameID string) (repository.GameSummary, error)
	Snapshots(ctx context.Context, gameID string, from, to int) ([]model.SkaterSnapshot, error)
	Snapshot(ctx context.Context, gameID string, t int) (model.SkaterSnapshot, error)
	Goals(ctx context.Context, gameID string) ([]strength.ClassifiedGoal, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	gamesHandler  *GamesHandler
}

// NewServer creates a new API server with all handlers. maxRange caps the
// seconds returned by one snapshot query.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRange int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		gamesHandler:  NewGamesHandler(deps, maxRange),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /games", MetricsMiddleware(s.gamesHandler.HandleSubmit, "games_submit"))
	mux.HandleFunc("GET /games/{id}", MetricsMiddleware(s.gamesHandler.HandleGame, "games_get"))
	mux.HandleFunc("GET /games/{id}/snapshots", MetricsMiddleware(s.gamesHandler.HandleSnapshots, "games_snapshots"))
	mux.HandleFunc("GET /games/{id}/strength", MetricsMiddleware(s.gamesHandler.HandleStrength, "games_strength"))
	mux.HandleFunc("GET /games/{id}/goals", MetricsMiddleware(s.gamesHandler.HandleGoals, "games_goals"))
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

// writeStoreError translates store lookups into HTTP statuses.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, "out_of_range", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
