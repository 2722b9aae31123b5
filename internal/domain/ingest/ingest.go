package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
)

const defaultOvertimeLength = 300

// Event type tags of the raw log.
const (
	TypePenalty          = "penalty"
	TypeGoaltenderChange = "goalkeeper_change"
	TypeGoal             = "goal"
	TypePeriodEnd        = "period_end"
)

// periodOrder lists the period labels in playing order.
var periodOrder = []string{
	model.PeriodFirst,
	model.PeriodSecond,
	model.PeriodThird,
	model.PeriodOvertime,
	model.PeriodShootout,
}

// Log is a parsed game log.
type Log struct {
	Game      model.Game
	Events    []model.RawEvent
	Penalties []*model.Penalty
	Changes   []model.GoaltenderChange
	Goals     []model.Goal
	// PeriodEnds holds the ascending, de-duplicated period end seconds.
	PeriodEnds []int
	Anomalies  []model.Anomaly
}

// End is the true end of the game: the latest period end.
func (l *Log) End() int {
	if len(l.PeriodEnds) == 0 {
		return 0
	}
	return l.PeriodEnds[len(l.PeriodEnds)-1]
}

// Parser decodes raw game logs.
type Parser struct {
	logger         logger.Logger
	overtimeLength int
}

// NewParser creates a parser with configuration options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		overtimeLength: defaultOvertimeLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("ingest")
	}
	return p
}

// Decode reads a whole log from r and parses it.
func (p *Parser) Decode(ctx context.Context, r io.Reader) (*Log, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return p.Parse(ctx, data)
}

// Parse turns a JSON game log into typed records. Single malformed events
// are skipped and recorded as anomalies; only a log missing its required
// structure fails with ErrMalformedLog.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Log, error) {
	var wl wireLog
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLog, err)
	}
	if wl.Game == nil || strings.TrimSpace(string(wl.Game.ID)) == "" {
		return nil, fmt.Errorf("%w: missing game id", ErrMalformedLog)
	}
	if len(wl.Periods) == 0 {
		return nil, fmt.Errorf("%w: game %s has no periods", ErrMalformedLog, wl.Game.ID)
	}

	game := model.Game{
		ID:         string(wl.Game.ID),
		Season:     string(wl.Game.Season),
		SeasonType: model.ParseSeasonType(strings.ToLower(wl.Game.SeasonType)),
		Teams: model.Sides[model.Team]{
			Home: model.Team{ID: string(wl.Game.Home.ID), Name: wl.Game.Home.Name},
			Road: model.Team{ID: string(wl.Game.Road.ID), Name: wl.Game.Road.Name},
		},
	}

	b := &builder{
		log: &Log{Game: game},
		rec: anomaly.NewRecorder(game.ID, p.logger),
		ctx: ctx,
		lg:  p.logger,
	}

	known := make(map[string]bool, len(periodOrder))
	for _, label := range periodOrder {
		known[label] = true
	}
	unknown := make([]string, 0)
	for label := range wl.Periods {
		if !known[label] {
			unknown = append(unknown, label)
		}
	}
	sort.Strings(unknown)
	for _, label := range unknown {
		b.rec.Record(ctx, model.AnomalySkippedEvent, 0, "unknown period %q with %d events", label, len(wl.Periods[label]))
	}

	var overtimeSeen, overtimeEnded, shootoutSeen bool
	lastOvertime := 0
	for _, label := range periodOrder {
		events, ok := wl.Periods[label]
		if !ok {
			continue
		}
		sort.SliceStable(events, func(i, j int) bool {
			return timeOf(events[i]) < timeOf(events[j])
		})
		for i, ev := range events {
			if strings.TrimSpace(ev.Type) == "" || ev.Time == nil {
				return nil, fmt.Errorf("%w: period %s event %d lacks type or time", ErrMalformedLog, label, i)
			}
			b.event(label, i, ev)
			if label == model.PeriodOvertime {
				switch ev.Type {
				case TypeGoal:
					// Overtime ends on the deciding goal.
					b.periodEnd(*ev.Time)
					overtimeEnded = true
				case TypePeriodEnd:
					overtimeEnded = true
				}
				lastOvertime = max(lastOvertime, *ev.Time)
			}
		}

		switch label {
		case model.PeriodFirst, model.PeriodSecond, model.PeriodThird:
			n, _ := strconv.Atoi(label)
			b.periodEnd(n * model.PeriodLength)
		case model.PeriodOvertime:
			overtimeSeen = true
		case model.PeriodShootout:
			shootoutSeen = true
		}
	}

	if overtimeSeen && !overtimeEnded {
		switch {
		case shootoutSeen:
			b.periodEnd(model.RegulationLength + p.overtimeLength)
		case lastOvertime > 0:
			b.periodEnd(lastOvertime)
		}
	}

	b.finish()
	if b.log.End() == 0 {
		return nil, fmt.Errorf("%w: game %s has no playable period", ErrMalformedLog, game.ID)
	}
	b.log.Anomalies = b.rec.Anomalies()

	p.logger.Debug(ctx, "parsed game log",
		logger.String("game_id", game.ID),
		logger.Int("events", len(b.log.Events)),
		logger.Int("penalties", len(b.log.Penalties)),
		logger.Int("goaltender_changes", len(b.log.Changes)),
		logger.Int("end", b.log.End()),
	)
	return b.log, nil
}

// builder accumulates one game's typed records.
type builder struct {
	ctx  context.Context
	log  *Log
	rec  *anomaly.Recorder
	lg   logger.Logger
	ends map[int]struct{}
}

func (b *builder) event(label string, idx int, ev wireEvent) {
	t := *ev.Time
	h := model.Header{PeriodLabel: label, Time: t}

	switch ev.Type {
	case TypePenalty:
		if pen := b.penalty(label, idx, t, ev.Data); pen != nil {
			b.log.Penalties = append(b.log.Penalties, pen)
			b.log.Events = append(b.log.Events, model.PenaltyEvent{Header: h, Penalty: pen})
		}
	case TypeGoaltenderChange, "goaltender_change":
		for _, ch := range b.changes(t, ev.Data) {
			b.log.Changes = append(b.log.Changes, ch)
			b.log.Events = append(b.log.Events, model.GoaltenderChangeEvent{Header: h, Change: &ch})
		}
	case TypeGoal:
		if g := b.goal(label, t, ev.Data); g != nil {
			b.log.Goals = append(b.log.Goals, *g)
			b.log.Events = append(b.log.Events, model.GoalEvent{Header: h, Goal: g})
		}
	case TypePeriodEnd:
		b.log.Events = append(b.log.Events, model.PeriodEndEvent{Header: h})
		if label != model.PeriodShootout {
			b.periodEnd(t)
		}
	default:
		b.lg.Debug(b.ctx, "ignoring event type", logger.String("type", ev.Type), logger.Int("t", t))
	}
}

func (b *builder) penalty(label string, idx, t int, raw json.RawMessage) *model.Penalty {
	var wp wirePenalty
	if err := unmarshalData(raw, &wp); err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "penalty data: %v", err)
		return nil
	}
	side, err := model.ParseSide(wp.Team)
	if err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "penalty %s: %v", wp.ID, err)
		return nil
	}
	if wp.Duration == nil || *wp.Duration < 0 {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "penalty %s: missing duration", wp.ID)
		return nil
	}

	pen := &model.Penalty{
		ID:         string(wp.ID),
		Player:     model.PlayerID(wp.PlayerID),
		TeamID:     string(wp.TeamID),
		Side:       side,
		Infraction: strings.ToUpper(strings.TrimSpace(wp.Infraction)),
		Duration:   *wp.Duration,
		From:       t,
	}
	if pen.ID == "" {
		pen.ID = fmt.Sprintf("p-%s-%d", label, idx)
	}
	if wp.From != nil {
		pen.From = *wp.From
	}
	pen.To = pen.From + pen.Duration
	if wp.To != nil {
		pen.To = *wp.To
	}
	if wp.Created != nil {
		pen.Created = *wp.Created
		pen.HasCreated = true
	}
	if pen.From > pen.To {
		b.rec.Record(b.ctx, model.AnomalySwappedInterval, t, "penalty %s from=%d to=%d", pen.ID, pen.From, pen.To)
		pen.From, pen.To = pen.To, pen.From
	}
	if !pen.Attributed() {
		b.rec.Record(b.ctx, model.AnomalyUnattributedPenalty, t, "penalty %s has no disciplined player", pen.ID)
	}
	cat, ok := Categorize(pen.Infraction)
	if !ok {
		b.rec.Record(b.ctx, model.AnomalyUnknownInfraction, t, "penalty %s infraction %q", pen.ID, pen.Infraction)
	}
	pen.Category = cat
	return pen
}

func (b *builder) changes(t int, raw json.RawMessage) []model.GoaltenderChange {
	var wc wireChange
	if err := unmarshalData(raw, &wc); err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "goaltender change data: %v", err)
		return nil
	}
	side, err := model.ParseSide(wc.Team)
	if err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "goaltender change: %v", err)
		return nil
	}
	if wc.In == "" && wc.Out == "" {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "goaltender change without players")
		return nil
	}

	out := make([]model.GoaltenderChange, 0, 2)
	// A swap leaves the ice before the replacement enters.
	if wc.Out != "" {
		out = append(out, model.GoaltenderChange{Time: t, Side: side, Direction: model.DirectionOut, Player: model.PlayerID(wc.Out)})
	}
	if wc.In != "" {
		out = append(out, model.GoaltenderChange{Time: t, Side: side, Direction: model.DirectionIn, Player: model.PlayerID(wc.In)})
	}
	return out
}

func (b *builder) goal(label string, t int, raw json.RawMessage) *model.Goal {
	var wg wireGoal
	if err := unmarshalData(raw, &wg); err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "goal data: %v", err)
		return nil
	}
	side, err := model.ParseSide(wg.Team)
	if err != nil {
		b.rec.Record(b.ctx, model.AnomalySkippedEvent, t, "goal: %v", err)
		return nil
	}
	return &model.Goal{
		Time:     t,
		Period:   label,
		Side:     side,
		Scorer:   model.PlayerID(wg.Scorer),
		Balance:  strings.ToUpper(strings.TrimSpace(wg.Balance)),
		Shootout: label == model.PeriodShootout,
	}
}

func (b *builder) periodEnd(t int) {
	if t <= 0 {
		return
	}
	if b.ends == nil {
		b.ends = make(map[int]struct{})
	}
	b.ends[t] = struct{}{}
}

func (b *builder) finish() {
	ends := make([]int, 0, len(b.ends))
	for t := range b.ends {
		ends = append(ends, t)
	}
	sort.Ints(ends)
	b.log.PeriodEnds = ends
}

func timeOf(ev wireEvent) int {
	if ev.Time == nil {
		return -1
	}
	return *ev.Time
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(raw, v)
}
