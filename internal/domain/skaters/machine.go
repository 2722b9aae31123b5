// Package skaters walks a game second by second and derives how many
// skaters each team has on the ice from penalty and goaltender intervals.
package skaters

import (
	"context"
	"sort"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/goalie"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
	"github.com/okian/rinktime/pkg/metrics"
)

// Input is everything one game's walk reads. None of it is mutated.
type Input struct {
	Game model.Game
	// Index holds the penalty and goaltender shift intervals.
	Index *interval.Index
	// Penalties is the full penalty list in log order.
	Penalties []*model.Penalty
	Goalies   *goalie.Timeline
	// End is the last second to emit.
	End int

	Recorder *anomaly.Recorder
	Logger   logger.Logger
}

// Step is the bookkeeping of one second: the deltas applied and whether
// overtime equalization or clamping touched the reported counts.
type Step struct {
	Penalty   model.Sides[int]
	Goalie    model.Sides[int]
	Equalized bool
	Clamped   model.Sides[bool]
}

// Result holds one snapshot and one step per second 0..End.
type Result struct {
	Snapshots []model.SkaterSnapshot
	Steps     []Step
}

// effect is the skater change a penalty applied when it became effective.
type effect struct {
	side  model.Side
	delta int
}

// machine is the state carried from one second to the next.
type machine struct {
	in  Input
	ctx context.Context

	// counts are the running, unclamped skater counts.
	counts model.Sides[int]
	// started holds penalties already resolved, effective or cancelling.
	started   map[*model.Penalty]struct{}
	effective map[*model.Penalty]effect
	clamped   model.Sides[bool]
	prevSet   map[any]struct{}
	byStart   map[int][]*model.Penalty
}

// Run reconstructs skater counts for every second of the game.
func Run(ctx context.Context, in Input) *Result {
	if in.End < 0 {
		in.End = 0
	}
	m := &machine{
		in:        in,
		ctx:       ctx,
		counts:    model.Sides[int]{Home: model.FullSkaters, Road: model.FullSkaters},
		started:   make(map[*model.Penalty]struct{}),
		effective: make(map[*model.Penalty]effect),
		prevSet:   make(map[any]struct{}),
		byStart:   make(map[int][]*model.Penalty),
	}
	for _, p := range in.Penalties {
		if p.AffectsSkaters() {
			m.byStart[p.Start()] = append(m.byStart[p.Start()], p)
		}
	}

	res := &Result{
		Snapshots: make([]model.SkaterSnapshot, 0, in.End+1),
		Steps:     make([]Step, 0, in.End+1),
	}
	var prevGoalies model.Sides[model.PlayerID]
	for t := 0; t <= in.End; t++ {
		var goalies model.Sides[model.PlayerID]
		if in.Goalies != nil {
			goalies, _ = in.Goalies.At(t)
		}
		if t == 0 {
			prevGoalies = goalies
		}
		snap, step := m.second(t, prevGoalies, goalies)
		res.Snapshots = append(res.Snapshots, snap)
		res.Steps = append(res.Steps, step)
		prevGoalies = goalies
	}
	return res
}

func (m *machine) second(t int, prevGoalies, goalies model.Sides[model.PlayerID]) (model.SkaterSnapshot, Step) {
	var step Step
	overtime := m.in.Game.RegularSeasonOvertime(t)
	if overtime && equalize(&m.counts) {
		step.Equalized = true
	}

	for _, side := range []model.Side{model.Home, model.Road} {
		step.Goalie.Set(side, goalieDelta(prevGoalies.Get(side), goalies.Get(side)))
	}

	active, set := m.activePenalties(t)
	if !sameSet(set, m.prevSet) {
		m.resolveStarts(t, active, overtime, &step.Penalty)
		m.resolveExpiries(active, &step.Penalty)
	}
	m.prevSet = set

	for _, side := range []model.Side{model.Home, model.Road} {
		m.counts.Set(side, m.counts.Get(side)+step.Penalty.Get(side)+step.Goalie.Get(side))
	}
	if overtime && equalize(&m.counts) {
		step.Equalized = true
	}

	snap := model.SkaterSnapshot{Time: t, Goalies: goalies}
	for _, side := range []model.Side{model.Home, model.Road} {
		n, clamped := clamp(m.counts.Get(side))
		snap.Skaters.Set(side, n)
		step.Clamped.Set(side, clamped)
		if clamped && !m.clamped.Get(side) {
			metrics.RecordSkaterClamp(side.String())
			m.in.Recorder.Record(m.ctx, model.AnomalySkaterClamp, t,
				"%s computed %d skaters, reported %d", side, m.counts.Get(side), n)
		}
		m.clamped.Set(side, clamped)
	}
	return snap, step
}

// activePenalties returns the skater-affecting penalties active at t and
// the identity set of every interval active at t.
func (m *machine) activePenalties(t int) (map[*model.Penalty]struct{}, map[any]struct{}) {
	active := make(map[*model.Penalty]struct{})
	set := make(map[any]struct{})
	for _, iv := range m.in.Index.ActiveAt(t) {
		switch iv.Kind {
		case interval.KindPenalty:
			set[iv.Penalty] = struct{}{}
			if iv.Penalty.AffectsSkaters() {
				active[iv.Penalty] = struct{}{}
			}
		case interval.KindShift:
			set[iv.Shift] = struct{}{}
		}
	}
	return active, set
}

// resolveStarts applies the penalties that take effect at t.
func (m *machine) resolveStarts(t int, active map[*model.Penalty]struct{}, overtime bool, delta *model.Sides[int]) {
	var taken model.Sides[[]*model.Penalty]
	for _, p := range m.byStart[t] {
		if _, ok := active[p]; !ok {
			continue
		}
		if _, ok := m.started[p]; ok {
			continue
		}
		taken.Set(p.Side, append(taken.Get(p.Side), p))
	}
	if len(taken.Home) == 0 && len(taken.Road) == 0 {
		return
	}

	apply := func(p *model.Penalty) {
		e := effect{side: p.Side, delta: -1}
		if overtime {
			e = effect{side: p.Side.Other(), delta: 1}
		}
		m.started[p] = struct{}{}
		m.effective[p] = e
		delta.Set(e.side, delta.Get(e.side)+e.delta)
	}
	cancel := func(p *model.Penalty) {
		m.started[p] = struct{}{}
	}

	if len(taken.Home) == 0 || len(taken.Road) == 0 {
		for _, p := range append(taken.Home, taken.Road...) {
			apply(p)
		}
		return
	}

	homeMajors, homeMinors := split(taken.Home)
	roadMajors, roadMinors := split(taken.Road)

	// Coincidental minors at full strength both go to the box: 4 on 4.
	if m.counts.Home == model.FullSkaters && m.counts.Road == model.FullSkaters &&
		len(homeMajors) == 0 && len(roadMajors) == 0 &&
		len(homeMinors) == 1 && len(roadMinors) == 1 {
		apply(homeMinors[0])
		apply(roadMinors[0])
		return
	}

	for _, class := range [][2][]*model.Penalty{{homeMajors, roadMajors}, {homeMinors, roadMinors}} {
		home, road := class[0], class[1]
		if len(home) >= 3 || len(road) >= 3 {
			m.in.Recorder.Record(m.ctx, model.AnomalyUnresolvedCombination, t,
				"%d home and %d road penalties of one class at once", len(home), len(road))
		}
		matched := min(len(home), len(road))
		for _, p := range home[:matched] {
			cancel(p)
		}
		for _, p := range road[:matched] {
			cancel(p)
		}
		for _, p := range home[matched:] {
			apply(p)
		}
		for _, p := range road[matched:] {
			apply(p)
		}
		if matched > 0 && m.in.Logger != nil {
			m.in.Logger.Debug(m.ctx, "offsetting penalties",
				logger.String("game_id", m.in.Game.ID),
				logger.Int("t", t),
				logger.Int("matched", matched),
				logger.Int("home", len(home)),
				logger.Int("road", len(road)),
			)
		}
	}
}

// resolveExpiries releases started penalties that are no longer active.
func (m *machine) resolveExpiries(active map[*model.Penalty]struct{}, delta *model.Sides[int]) {
	for p := range m.started {
		if _, ok := active[p]; ok {
			continue
		}
		delete(m.started, p)
		if e, ok := m.effective[p]; ok {
			delete(m.effective, p)
			delta.Set(e.side, delta.Get(e.side)-e.delta)
		}
	}
}

// split partitions penalties into majors and minors, each ordered by
// served duration descending, then start ascending.
func split(ps []*model.Penalty) (majors, minors []*model.Penalty) {
	for _, p := range ps {
		if p.Major() {
			majors = append(majors, p)
		} else {
			minors = append(minors, p)
		}
	}
	order := func(s []*model.Penalty) {
		sort.SliceStable(s, func(i, j int) bool {
			if s[i].ActualDuration() != s[j].ActualDuration() {
				return s[i].ActualDuration() > s[j].ActualDuration()
			}
			return s[i].Start() < s[j].Start()
		})
	}
	order(majors)
	order(minors)
	return majors, minors
}

// goalieDelta is +1 when the goaltender leaves the ice and -1 when one returns.
func goalieDelta(prev, cur model.PlayerID) int {
	switch {
	case prev != "" && cur == "":
		return 1
	case prev == "" && cur != "":
		return -1
	default:
		return 0
	}
}

// equalize applies regular-season overtime strength: equal counts play
// 3 on 3 and a 5 on 4 becomes 4 on 3. It reports whether counts changed.
func equalize(c *model.Sides[int]) bool {
	switch {
	case c.Home == c.Road && c.Home != model.MinSkaters:
		c.Home, c.Road = model.MinSkaters, model.MinSkaters
	case c.Home == 5 && c.Road == 4:
		c.Home, c.Road = 4, 3
	case c.Home == 4 && c.Road == 5:
		c.Home, c.Road = 3, 4
	default:
		return false
	}
	return true
}

func clamp(n int) (int, bool) {
	switch {
	case n < model.MinSkaters:
		return model.MinSkaters, true
	case n > model.MaxSkaters:
		return model.MaxSkaters, true
	default:
		return n, false
	}
}

func sameSet(a, b map[any]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
