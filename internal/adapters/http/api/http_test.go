package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/rinktime/internal/adapters/http/api"
	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/adapters/repository"
	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies answers queries from a memory store and scripts Submit.
type mockDependencies struct {
	*repository.MemoryStore
	submitErr error
	duplicate bool
	submitted []string
}

func (m *mockDependencies) Submit(_ context.Context, body io.Reader) (api.Submission, error) {
	if m.submitErr != nil {
		return api.Submission{}, m.submitErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return api.Submission{}, fmt.Errorf("read event log: %w", err)
	}
	m.submitted = append(m.submitted, string(data))
	return api.Submission{GameID: "g1", JobID: "job-1", Duplicate: m.duplicate}, nil
}

type mockStatsProvider struct{}

func (mockStatsProvider) GetStats() map[string]any {
	return map[string]any{"games": 1}
}

func storedGame() *engine.Result {
	snaps := make([]model.SkaterSnapshot, 3601)
	for t := range snaps {
		snaps[t] = model.SkaterSnapshot{
			Time:    t,
			Skaters: model.Sides[int]{Home: 5, Road: 5},
			Goalies: model.Sides[model.PlayerID]{Home: "hg", Road: "rg"},
		}
		if t >= 100 && t < 220 {
			snaps[t].Skaters.Road = 4
		}
	}
	return &engine.Result{
		Game:      model.Game{ID: "g1"},
		End:       3600,
		Snapshots: snaps,
		Goals:     []strength.ClassifiedGoal{{Time: 150, Side: "home", Strength: "5v4", Situation: strength.PowerPlay}},
	}
}

func newServer() (*http.ServeMux, *mockDependencies) {
	store := repository.NewMemoryStore(context.Background())
	So(store.Save(context.Background(), storedGame()), ShouldBeNil)
	deps := &mockDependencies{MemoryStore: store}
	mux := http.NewServeMux()
	api.NewServer(deps, mockStatsProvider{}, 600).Register(mux)
	return mux, deps
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, r))
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newServer()

		Convey("Then health, stats and metrics should answer", func() {
			So(do(mux, "GET", "/healthz", "").Code, ShouldEqual, http.StatusOK)
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"games":1`)
			So(do(mux, "GET", "/metrics", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown paths and wrong methods should be rejected", func() {
			So(do(mux, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "DELETE", "/games", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestHandleSubmit(t *testing.T) {
	Convey("Given a server accepting game logs", t, func() {
		mux, deps := newServer()

		Convey("When a log over the size limit is posted", func() {
			w := do(mux, "POST", "/games", `{"game":{"id":"g1","pad":"`+strings.Repeat("x", 8<<20)+`"}}`)

			Convey("Then it should be rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(w.Body.String(), ShouldContainSubstring, `"code":"log_too_large"`)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When a new log is posted", func() {
			w := do(mux, "POST", "/games", `{"game":{"id":"g1"}}`)

			Convey("Then it should be accepted for reconstruction", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var sub api.Submission
				So(json.Unmarshal(w.Body.Bytes(), &sub), ShouldBeNil)
				So(sub.GameID, ShouldEqual, "g1")
				So(sub.Duplicate, ShouldBeFalse)
				So(deps.submitted, ShouldHaveLength, 1)
			})
		})

		Convey("When the log was already submitted", func() {
			deps.duplicate = true
			w := do(mux, "POST", "/games", `{}`)

			Convey("Then it should be acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When submission fails", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{fmt.Errorf("%w: no periods", ingest.ErrMalformedLog), http.StatusBadRequest, "malformed_log"},
				{fmt.Errorf("%w: 10 games waiting", queue.ErrFull), http.StatusTooManyRequests, "backpressure"},
				{queue.ErrClosed, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.submitErr = c.err
				w := do(mux, "POST", "/games", `{}`)
				So(w.Code, ShouldEqual, c.status)
				So(w.Body.String(), ShouldContainSubstring, c.code)
			}
		})
	})
}

func TestHandleQueries(t *testing.T) {
	Convey("Given a stored reconstruction", t, func() {
		mux, _ := newServer()

		Convey("When the game summary is requested", func() {
			w := do(mux, "GET", "/games/g1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"end":3600`)
			So(do(mux, "GET", "/games/nope", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a snapshot range is requested", func() {
			w := do(mux, "GET", "/games/g1/snapshots?from=95&to=104", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body struct {
				From      int                    `json:"from"`
				To        int                    `json:"to"`
				Snapshots []model.SkaterSnapshot `json:"snapshots"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then one snapshot per second should come back", func() {
				So(body.Snapshots, ShouldHaveLength, 10)
				So(body.Snapshots[4].Skaters.Road, ShouldEqual, 5)
				So(body.Snapshots[5].Skaters.Road, ShouldEqual, 4)
			})
		})

		Convey("When the range is omitted", func() {
			w := do(mux, "GET", "/games/g1/snapshots?from=3300", "")
			var body struct {
				To        int                    `json:"to"`
				Snapshots []model.SkaterSnapshot `json:"snapshots"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then it should stop at the end of the game", func() {
				So(body.To, ShouldEqual, 3600)
				So(body.Snapshots, ShouldHaveLength, 301)
			})
		})

		Convey("When the range is invalid", func() {
			So(do(mux, "GET", "/games/g1/snapshots?from=0&to=1000", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/games/g1/snapshots?from=3500&to=3700", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/games/g1/snapshots?from=x", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/games/nope/snapshots", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When strength is requested from the road bench", func() {
			w := do(mux, "GET", "/games/g1/strength?t=150&side=road", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"strength":"4v5"`)
			So(w.Body.String(), ShouldContainSubstring, `"situation":"SH"`)
		})

		Convey("When strength is requested badly", func() {
			So(do(mux, "GET", "/games/g1/strength", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/games/g1/strength?t=5&side=middle", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/games/g1/strength?t=9999", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When goals are requested", func() {
			w := do(mux, "GET", "/games/g1/goals", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var goals []strength.ClassifiedGoal
			So(json.Unmarshal(w.Body.Bytes(), &goals), ShouldBeNil)
			So(goals, ShouldHaveLength, 1)
			So(goals[0].Strength, ShouldEqual, "5v4")
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		base := errors.New("boom")

		Convey("Then kinds and causes should both match", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, base)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, base), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
