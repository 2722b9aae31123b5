package model

// PlayerID identifies a player. The empty value means "no attributable player".
type PlayerID string

// Nominal penalty durations that change the skater count.
const (
	MinorDuration = 120
	MajorDuration = 300
)

// RawEvent is one typed record of a game log. The concrete types are
// GoalEvent, PenaltyEvent, GoaltenderChangeEvent and PeriodEndEvent.
type RawEvent interface {
	// Period is the period label the event was recorded under.
	Period() string
	// At is the scoreboard second of the event.
	At() int

	rawEvent()
}

// Header carries the fields shared by every raw event.
type Header struct {
	PeriodLabel string
	Time        int
}

func (h Header) Period() string { return h.PeriodLabel }
func (h Header) At() int        { return h.Time }
func (Header) rawEvent()        {}

// GoalEvent wraps a goal.
type GoalEvent struct {
	Header
	Goal *Goal
}

// PenaltyEvent wraps a penalty.
type PenaltyEvent struct {
	Header
	Penalty *Penalty
}

// GoaltenderChangeEvent wraps one direction of a goaltender change.
type GoaltenderChangeEvent struct {
	Header
	Change *GoaltenderChange
}

// PeriodEndEvent marks the end of a period.
type PeriodEndEvent struct {
	Header
}

// Goal is a scored goal.
type Goal struct {
	Time     int
	Period   string
	Side     Side
	Scorer   PlayerID
	Balance  string // e.g. EV, PP, SH, EN, PS
	Shootout bool
}

// InfractionCategory groups infraction codes.
type InfractionCategory string

const (
	CategoryStick       InfractionCategory = "stick"
	CategoryRestraining InfractionCategory = "restraining"
	CategoryPhysical    InfractionCategory = "physical"
	CategoryConduct     InfractionCategory = "conduct"
	CategoryMisconduct  InfractionCategory = "misconduct"
	CategoryTechnical   InfractionCategory = "technical"
	CategoryOther       InfractionCategory = "other"
)

// Penalty is an assessed penalty. Penalties are immutable once built.
type Penalty struct {
	ID         string
	Player     PlayerID
	TeamID     string
	Side       Side
	Infraction string
	Category   InfractionCategory
	// Duration is the nominal duration in seconds.
	Duration int
	// From and To bound the scoreboard interval the penalty is served in.
	From int
	To   int
	// Created is when the penalty was called; valid only when HasCreated.
	Created    int
	HasCreated bool
}

// Attributed reports whether a disciplined player is known.
func (p *Penalty) Attributed() bool { return p.Player != "" }

// ActualDuration is the served length, which may differ from Duration.
func (p *Penalty) ActualDuration() int { return p.To - p.From }

// AffectsSkaters reports whether the nominal duration changes the skater count.
func (p *Penalty) AffectsSkaters() bool {
	return p.Duration == MinorDuration || p.Duration == MajorDuration
}

// Major reports whether the penalty is a five minute major.
func (p *Penalty) Major() bool { return p.Duration == MajorDuration }

// Start is the second the penalty takes effect: the creation time when
// known (it can precede From for delayed penalties), otherwise From.
func (p *Penalty) Start() int {
	if p.HasCreated && p.Created < p.To {
		return p.Created
	}
	return p.From
}

// Direction of a goaltender change.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// GoaltenderChange is a raw goaltender entering or leaving the ice.
type GoaltenderChange struct {
	Time      int
	Side      Side
	Direction Direction
	Player    PlayerID
}

// GoaltenderShift is a closed stretch [From, To) with one goaltender on the ice.
type GoaltenderShift struct {
	ID     string
	Side   Side
	Player PlayerID
	From   int
	To     int
}
