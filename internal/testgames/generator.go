package testgames

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

const (
	period     = 1200
	regulation = 3 * period
	overtime   = 300
)

var infractions = []string{"TRIP", "HOOK", "SLASH", "HOLD", "INTRF", "ROUGH", "HI-ST", "DELAY"}

var sides = [2]string{"home", "road"}

// Generate builds cfg.Games game logs. The same config always yields the same logs.
func Generate(cfg Config) ([]Log, error) {
	if cfg.Games < 0 {
		return nil, fmt.Errorf("games must not be negative, got %d", cfg.Games)
	}
	logs := make([]Log, cfg.Games)
	for i := range logs {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("game %d id: %w", i, err)
		}
		logs[i] = generateGame(rng, cfg, id.String())
	}
	return logs, nil
}

// Encode renders a log in the submission format.
func Encode(l Log) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

type goal struct {
	t       int
	side    int
	balance string
}

type penalty struct {
	Penalty
	side int
}

func generateGame(rng *rand.Rand, cfg Config, id string) Log {
	seasonType := "regular"
	if rng.Float64() < cfg.PlayoffRate {
		seasonType = "playoffs"
	}
	goalies := [2]string{"h-g1", "r-g1"}

	var (
		goals     []goal
		penalties []penalty
	)
	for p := 0; p < 3; p++ {
		start := p * period
		for n := rng.Intn(3); n > 0; n-- {
			goals = append(goals, goal{t: start + 1 + rng.Intn(period-1), side: rng.Intn(2), balance: "EV"})
		}
		for n := rng.Intn(4); n > 0; n-- {
			side := rng.Intn(2)
			t := start + 1 + rng.Intn(period-1)
			dur := 120
			switch r := rng.Float64(); {
			case r < 0.08:
				dur = 300
			case r < 0.12:
				dur = 600
			}
			penalties = append(penalties, penalty{
				side: side,
				Penalty: Penalty{
					ID:         fmt.Sprintf("%s-p%d", id[:8], len(penalties)+1),
					Team:       sides[side],
					PlayerID:   skater(side, rng),
					Infraction: infractions[rng.Intn(len(infractions))],
					Duration:   dur,
					From:       t,
					To:         t + dur,
				},
			})
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].t < goals[j].t })
	cutShort(goals, penalties)

	var changes []Event
	for side, g := range goalies {
		changes = append(changes, Event{Type: "goalkeeper_change", Time: 0, Data: Change{Team: sides[side], In: g}})
	}

	score := tally(goals)
	if diff := score[0] - score[1]; diff == 1 || diff == -1 {
		trailing := 1
		if diff < 0 {
			trailing = 0
		}
		pull := regulation - 30 - rng.Intn(60)
		changes = append(changes, Event{Type: "goalkeeper_change", Time: pull, Data: Change{Team: sides[trailing], Out: goalies[trailing]}})
		if rng.Intn(2) == 0 {
			goals = append(goals, goal{t: pull + 1 + rng.Intn(regulation-pull-1), side: 1 - trailing, balance: "EN"})
		}
	}

	periods := map[string][]Event{}
	label := func(t int) string {
		switch {
		case t <= period:
			return "1"
		case t <= 2*period:
			return "2"
		case t <= regulation:
			return "3"
		default:
			return "overtime"
		}
	}

	score = tally(goals)
	if score[0] == score[1] {
		switch {
		case seasonType == "regular" && rng.Float64() < cfg.ShootoutRate:
			end := regulation + overtime
			periods["overtime"] = []Event{{Type: "period_end", Time: end}}
			periods["shootout"] = []Event{{Type: "goal", Time: end, Data: Goal{Team: sides[rng.Intn(2)], Balance: "PS"}}}
		default:
			t := regulation + 1 + rng.Intn(overtime-1)
			goals = append(goals, goal{t: t, side: rng.Intn(2), balance: "EV"})
		}
	}

	for _, c := range changes {
		periods[label(c.Time)] = append(periods[label(c.Time)], c)
	}
	for _, p := range penalties {
		periods[label(p.From)] = append(periods[label(p.From)], Event{Type: "penalty", Time: p.From, Data: p.Penalty})
	}
	for _, g := range goals {
		periods[label(g.t)] = append(periods[label(g.t)], Event{
			Type: "goal", Time: g.t,
			Data: Goal{Team: sides[g.side], Scorer: skater(g.side, rng), Balance: g.balance},
		})
	}
	for p := 1; p <= 3; p++ {
		key := strconv.Itoa(p)
		periods[key] = append(periods[key], Event{Type: "period_end", Time: p * period})
	}
	for key := range periods {
		evs := periods[key]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Time < evs[j].Time })
	}

	return Log{
		Game: Game{
			ID:         id,
			Season:     "2024",
			SeasonType: seasonType,
			Home:       Team{ID: "1", Name: "Home " + id[:4]},
			Road:       Team{ID: "2", Name: "Road " + id[:4]},
		},
		Periods: periods,
	}
}

// cutShort ends a minor on the first goal against the penalized side.
func cutShort(goals []goal, penalties []penalty) {
	for i := range penalties {
		p := &penalties[i]
		if p.Duration != 120 {
			continue
		}
		for j := range goals {
			g := &goals[j]
			if g.side != p.side && g.t > p.From && g.t < p.To {
				p.To = g.t
				g.balance = "PP"
				break
			}
		}
	}
}

func tally(goals []goal) [2]int {
	var out [2]int
	for _, g := range goals {
		out[g.side]++
	}
	return out
}

func skater(side int, rng *rand.Rand) string {
	return fmt.Sprintf("%c-%d", sides[side][0], 2+rng.Intn(97))
}
