package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString accepts both JSON strings and numbers; feeds disagree on
// whether identifiers are quoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type wireLog struct {
	Game    *wireGame              `json:"game"`
	Periods map[string][]wireEvent `json:"periods"`
}

type wireTeam struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type wireGame struct {
	ID         flexString `json:"id"`
	Season     flexString `json:"season"`
	SeasonType string     `json:"season_type"`
	Home       wireTeam   `json:"home"`
	Road       wireTeam   `json:"road"`
}

type wireEvent struct {
	Type string          `json:"type"`
	Time *int            `json:"time"`
	Data json.RawMessage `json:"data"`
}

type wirePenalty struct {
	ID         flexString `json:"id"`
	Team       string     `json:"team"`
	TeamID     flexString `json:"team_id"`
	PlayerID   flexString `json:"player_id"`
	Infraction string     `json:"infraction"`
	Duration   *int       `json:"duration"`
	From       *int       `json:"from"`
	To         *int       `json:"to"`
	Created    *int       `json:"created"`
}

type wireChange struct {
	Team string     `json:"team"`
	In   flexString `json:"in"`
	Out  flexString `json:"out"`
}

type wireGoal struct {
	Team    string     `json:"team"`
	Scorer  flexString `json:"scorer"`
	Balance string     `json:"balance"`
}
