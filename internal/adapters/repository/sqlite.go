package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
	"github.com/okian/rinktime/pkg/metrics"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	season      TEXT NOT NULL,
	season_type TEXT NOT NULL,
	home        TEXT NOT NULL,
	road        TEXT NOT NULL,
	end_t       INTEGER NOT NULL,
	segments    INTEGER NOT NULL,
	goals       INTEGER NOT NULL,
	anomalies   INTEGER NOT NULL,
	saved_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS segments (
	game_id      TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	from_t       INTEGER NOT NULL,
	to_t         INTEGER NOT NULL,
	home_skaters INTEGER NOT NULL,
	road_skaters INTEGER NOT NULL,
	home_goalie  TEXT NOT NULL,
	road_goalie  TEXT NOT NULL,
	PRIMARY KEY (game_id, from_t)
);
CREATE TABLE IF NOT EXISTS goals (
	game_id        TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	t              INTEGER NOT NULL,
	period         TEXT NOT NULL,
	side           TEXT NOT NULL,
	scorer         TEXT NOT NULL,
	balance        TEXT NOT NULL,
	strength       TEXT NOT NULL,
	situation      TEXT NOT NULL,
	goalie_against TEXT NOT NULL,
	empty_net      INTEGER NOT NULL,
	game_winning   INTEGER NOT NULL,
	PRIMARY KEY (game_id, seq)
);`

// SQLiteStore persists reconstructed games in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at dsn and ensures the schema.
// A "sqlite://" prefix is accepted.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	path := strings.TrimSpace(strings.TrimPrefix(dsn, "sqlite://"))
	if path == "" {
		return nil, ErrNoDSN
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer connection keeps transactions from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s := &SQLiteStore{db: db}
	metrics.UpdateStoreGames(s.Count(ctx))
	return s, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, res *engine.Result) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateResult(res); err != nil {
		return err
	}
	start := time.Now()
	rec := newRecord(res)
	sum := rec.summary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, sum.ID); err != nil {
		return fmt.Errorf("replace game %s: %w", sum.ID, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, season, season_type, home, road, end_t, segments, goals, anomalies, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Season, string(sum.SeasonType), sum.Home, sum.Road,
		sum.End, sum.Segments, sum.Goals, sum.Anomalies, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert game %s: %w", sum.ID, err)
	}

	segStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (game_id, from_t, to_t, home_skaters, road_skaters, home_goalie, road_goalie)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare segments: %w", err)
	}
	defer segStmt.Close()
	for _, seg := range rec.segments {
		if _, err = segStmt.ExecContext(ctx, sum.ID, seg.From, seg.To,
			seg.Skaters.Home, seg.Skaters.Road, string(seg.Goalies.Home), string(seg.Goalies.Road),
		); err != nil {
			return fmt.Errorf("insert segment %d of %s: %w", seg.From, sum.ID, err)
		}
	}

	goalStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO goals (game_id, seq, t, period, side, scorer, balance, strength, situation, goalie_against, empty_net, game_winning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare goals: %w", err)
	}
	defer goalStmt.Close()
	for i, g := range rec.goals {
		if _, err = goalStmt.ExecContext(ctx, sum.ID, i, g.Time, g.Period, g.Side, string(g.Scorer),
			g.Balance, g.Strength, g.Situation, string(g.GoalieAgainst), g.EmptyNet, g.GameWinning,
		); err != nil {
			return fmt.Errorf("insert goal %d of %s: %w", g.Time, sum.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit game %s: %w", sum.ID, err)
	}
	metrics.UpdateStoreGames(s.Count(ctx))
	metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

func (s *SQLiteStore) Game(ctx context.Context, gameID string) (GameSummary, error) {
	var (
		sum        GameSummary
		seasonType string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, season, season_type, home, road, end_t, segments, goals, anomalies FROM games WHERE id = ?`,
		gameID,
	).Scan(&sum.ID, &sum.Season, &seasonType, &sum.Home, &sum.Road, &sum.End, &sum.Segments, &sum.Goals, &sum.Anomalies)
	if errors.Is(err, sql.ErrNoRows) {
		return GameSummary{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return GameSummary{}, fmt.Errorf("get game %s: %w", gameID, err)
	}
	sum.SeasonType = model.SeasonType(seasonType)
	return sum, nil
}

func (s *SQLiteStore) Snapshots(ctx context.Context, gameID string, from, to int) ([]model.SkaterSnapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds())) }()

	sum, err := s.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := checkRange(sum.End, from, to); err != nil {
		return nil, err
	}
	segs, err := s.segments(ctx, gameID, from, to)
	if err != nil {
		return nil, err
	}
	return model.Expand(segs, from, to), nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context, gameID string, t int) (model.SkaterSnapshot, error) {
	snaps, err := s.Snapshots(ctx, gameID, t, t)
	if err != nil {
		return model.SkaterSnapshot{}, err
	}
	if len(snaps) == 0 {
		return model.SkaterSnapshot{}, fmt.Errorf("%w: no segment covers %d", ErrOutOfRange, t)
	}
	return snaps[0], nil
}

// segments loads the segments overlapping [from, to] ordered by start.
func (s *SQLiteStore) segments(ctx context.Context, gameID string, from, to int) ([]model.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_t, to_t, home_skaters, road_skaters, home_goalie, road_goalie
		 FROM segments WHERE game_id = ? AND to_t > ? AND from_t <= ? ORDER BY from_t`,
		gameID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments of %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []model.Segment
	for rows.Next() {
		var (
			seg        model.Segment
			home, road string
		)
		if err := rows.Scan(&seg.From, &seg.To, &seg.Skaters.Home, &seg.Skaters.Road, &home, &road); err != nil {
			return nil, fmt.Errorf("scan segment of %s: %w", gameID, err)
		}
		seg.Goalies = model.Sides[model.PlayerID]{Home: model.PlayerID(home), Road: model.PlayerID(road)}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Goals(ctx context.Context, gameID string) ([]strength.ClassifiedGoal, error) {
	if _, err := s.Game(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT t, period, side, scorer, balance, strength, situation, goalie_against, empty_net, game_winning
		 FROM goals WHERE game_id = ? ORDER BY seq`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("query goals of %s: %w", gameID, err)
	}
	defer rows.Close()

	out := []strength.ClassifiedGoal{}
	for rows.Next() {
		var (
			g               strength.ClassifiedGoal
			scorer, against string
		)
		if err := rows.Scan(&g.Time, &g.Period, &g.Side, &scorer, &g.Balance, &g.Strength, &g.Situation,
			&against, &g.EmptyNet, &g.GameWinning); err != nil {
			return nil, fmt.Errorf("scan goal of %s: %w", gameID, err)
		}
		g.Scorer, g.GoalieAgainst = model.PlayerID(scorer), model.PlayerID(against)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0
	}
	return n
}
