// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Game clock constants, in seconds of scoreboard time.
const (
	PeriodLength      = 1200
	RegulationPeriods = 3
	RegulationLength  = PeriodLength * RegulationPeriods
	// OvertimeStart is the first second played under overtime rules.
	OvertimeStart = RegulationLength + 1
)

// Period labels as they appear in the raw log.
const (
	PeriodFirst    = "1"
	PeriodSecond   = "2"
	PeriodThird    = "3"
	PeriodOvertime = "overtime"
	PeriodShootout = "shootout"
)

// SeasonType distinguishes regular season games from playoff games.
type SeasonType string

const (
	SeasonRegular  SeasonType = "regular"
	SeasonPlayoffs SeasonType = "playoffs"
	SeasonOther    SeasonType = "other"
)

// ParseSeasonType maps a raw season type onto a known value; unknown inputs are SeasonOther.
func ParseSeasonType(s string) SeasonType {
	switch SeasonType(s) {
	case SeasonRegular, SeasonPlayoffs:
		return SeasonType(s)
	case "regular_season", "regularseason":
		return SeasonRegular
	case "playoff", "play_offs":
		return SeasonPlayoffs
	default:
		return SeasonOther
	}
}

// Side identifies one of the two teams in a game.
type Side int

const (
	Home Side = iota
	Road
)

// ParseSide accepts "home"/"road" (and "away" as an alias).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home":
		return Home, nil
	case "road", "away", "visitor":
		return Road, nil
	default:
		return Home, fmt.Errorf("unknown side %q", s)
	}
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Home {
		return Road
	}
	return Home
}

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "road"
}

// Sides holds one value per team.
type Sides[T any] struct {
	Home T `json:"home"`
	Road T `json:"road"`
}

// Get returns the value for side.
func (s Sides[T]) Get(side Side) T {
	if side == Home {
		return s.Home
	}
	return s.Road
}

// Set stores v for side.
func (s *Sides[T]) Set(side Side, v T) {
	if side == Home {
		s.Home = v
		return
	}
	s.Road = v
}

// Team is one participant of a game.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Game is the immutable identity of a single game.
type Game struct {
	ID         string      `json:"id"`
	Season     string      `json:"season"`
	SeasonType SeasonType  `json:"season_type"`
	Teams      Sides[Team] `json:"teams"`
}

// RegularSeasonOvertime reports whether regular-season overtime rules apply at second t.
func (g Game) RegularSeasonOvertime(t int) bool {
	return g.SeasonType == SeasonRegular && t >= OvertimeStart
}
