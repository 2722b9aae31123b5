// Package testgames generates synthetic game logs and replays them
// against a running service.
package testgames

import "time"

// Config controls game generation.
type Config struct {
	Games int   // Number of games to generate
	Seed  int64 // Seed for reproducible output
	// PlayoffRate is the share of games played under playoff rules.
	PlayoffRate float64
	// ShootoutRate is the share of tied regular-season games decided by shootout.
	ShootoutRate float64
}

// SubmitConfig controls replaying generated games over HTTP.
type SubmitConfig struct {
	BaseURL string        // Base URL of the service
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout
}

// Stats counts submission outcomes.
type Stats struct {
	Submitted int
	Accepted  int
	Duplicate int
	Failed    int
	Duration  time.Duration
}

// DefaultConfig returns the generator defaults.
func DefaultConfig() Config {
	return Config{Games: 10, Seed: 1, PlayoffRate: 0.1, ShootoutRate: 0.3}
}

// Log is a game log in the submission format.
type Log struct {
	Game    Game               `json:"game"`
	Periods map[string][]Event `json:"periods"`
}

// Game identifies a generated game.
type Game struct {
	ID         string `json:"id"`
	Season     string `json:"season"`
	SeasonType string `json:"season_type"`
	Home       Team   `json:"home"`
	Road       Team   `json:"road"`
}

// Team is one side of a generated game.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is one raw log event.
type Event struct {
	Type string `json:"type"`
	Time int    `json:"time"`
	Data any    `json:"data,omitempty"`
}

// Penalty is the data of a penalty event.
type Penalty struct {
	ID         string `json:"id"`
	Team       string `json:"team"`
	PlayerID   string `json:"player_id,omitempty"`
	Infraction string `json:"infraction"`
	Duration   int    `json:"duration"`
	From       int    `json:"from"`
	To         int    `json:"to"`
}

// Change is the data of a goalkeeper change event.
type Change struct {
	Team string `json:"team"`
	In   string `json:"in,omitempty"`
	Out  string `json:"out,omitempty"`
}

// Goal is the data of a goal event.
type Goal struct {
	Team    string `json:"team"`
	Scorer  string `json:"scorer,omitempty"`
	Balance string `json:"balance"`
}
