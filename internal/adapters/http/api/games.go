package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
)

// maxLogBytes bounds a submitted game log.
const maxLogBytes = 8 << 20

// GamesHandler serves game submission and reconstruction queries.
type GamesHandler struct {
	deps     Dependencies
	maxRange int
}

// NewGamesHandler creates a games handler.
func NewGamesHandler(deps Dependencies, maxRange int) *GamesHandler {
	if maxRange <= 0 {
		maxRange = model.PeriodLength
	}
	return &GamesHandler{deps: deps, maxRange: maxRange}
}

// HandleSubmit handles POST /games.
func (h *GamesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_game"
	sub, err := h.deps.Submit(r.Context(), http.MaxBytesReader(w, r.Body, maxLogBytes))
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "log_too_large", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, ingest.ErrMalformedLog):
		writeError(w, http.StatusBadRequest, "malformed_log", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if sub.Duplicate {
		writeJSON(w, http.StatusOK, sub)
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}

// HandleGame handles GET /games/{id}.
func (h *GamesHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.Game(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, "api.get_game", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type snapshotsResponse struct {
	GameID    string                 `json:"game_id"`
	From      int                    `json:"from"`
	To        int                    `json:"to"`
	Snapshots []model.SkaterSnapshot `json:"snapshots"`
}

// HandleSnapshots handles GET /games/{id}/snapshots?from=&to=.
// Without to, the range runs maxRange seconds or to the end of the game.
func (h *GamesHandler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_snapshots"
	id := r.PathValue("id")

	sum, err := h.deps.Game(r.Context(), id)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	from, err := intParam(r, "from", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	to, err := intParam(r, "to", min(from+h.maxRange-1, sum.End))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if to-from+1 > h.maxRange {
		writeError(w, http.StatusBadRequest, "range_too_wide",
			WrapKind(op, ErrRangeTooWide, fmt.Errorf("at most %d seconds per query", h.maxRange)))
		return
	}

	snaps, err := h.deps.Snapshots(r.Context(), id, from, to)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotsResponse{GameID: id, From: from, To: to, Snapshots: snaps})
}

type strengthResponse struct {
	GameID    string                      `json:"game_id"`
	Time      int                         `json:"t"`
	Side      string                      `json:"side"`
	Strength  string                      `json:"strength"`
	Situation string                      `json:"situation"`
	Skaters   model.Sides[int]            `json:"skaters"`
	Goalies   model.Sides[model.PlayerID] `json:"goalies"`
	EmptyNet  model.Sides[bool]           `json:"empty_net"`
}

// HandleStrength handles GET /games/{id}/strength?t=&side=. Side defaults to home.
func (h *GamesHandler) HandleStrength(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_strength"
	id := r.PathValue("id")

	if r.URL.Query().Get("t") == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing t")))
		return
	}
	t, err := intParam(r, "t", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	side := model.Home
	if raw := r.URL.Query().Get("side"); raw != "" {
		if side, err = model.ParseSide(raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	snap, err := h.deps.Snapshot(r.Context(), id, t)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, strengthResponse{
		GameID:    id,
		Time:      t,
		Side:      side.String(),
		Strength:  strength.Notation(snap, side),
		Situation: strength.Situation(snap, side),
		Skaters:   snap.Skaters,
		Goalies:   snap.Goalies,
		EmptyNet:  model.Sides[bool]{Home: snap.Goalies.Home == "", Road: snap.Goalies.Road == ""},
	})
}

// HandleGoals handles GET /games/{id}/goals.
func (h *GamesHandler) HandleGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.deps.Goals(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, "api.get_goals", err)
		return
	}
	if goals == nil {
		goals = []strength.ClassifiedGoal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
