package model

// Skater count bounds.
const (
	MinSkaters  = 3
	MaxSkaters  = 6
	FullSkaters = 5
)

// SkaterSnapshot is the on-ice state of one second.
type SkaterSnapshot struct {
	Time    int             `json:"t"`
	Skaters Sides[int]      `json:"skaters"`
	Goalies Sides[PlayerID] `json:"goalies"`
}

// AnomalyKind classifies recovered data problems.
type AnomalyKind string

const (
	AnomalySwappedInterval       AnomalyKind = "swapped_interval"
	AnomalyUnattributedPenalty   AnomalyKind = "unattributed_penalty"
	AnomalyUnknownInfraction     AnomalyKind = "unknown_infraction"
	AnomalyEmptyPenalty          AnomalyKind = "empty_penalty"
	AnomalySkippedEvent          AnomalyKind = "skipped_event"
	AnomalyDegenerateShift       AnomalyKind = "degenerate_shift"
	AnomalyUnmatchedGoaltender   AnomalyKind = "unmatched_goaltender"
	AnomalyOverlappingShifts     AnomalyKind = "overlapping_shifts"
	AnomalySkaterClamp           AnomalyKind = "skater_clamp"
	AnomalyUnresolvedCombination AnomalyKind = "unresolved_combination"
	AnomalyDuplicateGoalTime     AnomalyKind = "duplicate_goal_time"
)

// Anomaly records one recovered data problem.
type Anomaly struct {
	Kind   AnomalyKind `json:"kind"`
	Time   int         `json:"t"`
	Detail string      `json:"detail"`
}

// Segment is a run of identical snapshots over seconds [From, To).
type Segment struct {
	From    int             `json:"from"`
	To      int             `json:"to"`
	Skaters Sides[int]      `json:"skaters"`
	Goalies Sides[PlayerID] `json:"goalies"`
}

// Contains reports whether t lies in the segment.
func (s Segment) Contains(t int) bool { return s.From <= t && t < s.To }

// Snapshot returns the segment's state at second t.
func (s Segment) Snapshot(t int) SkaterSnapshot {
	return SkaterSnapshot{Time: t, Skaters: s.Skaters, Goalies: s.Goalies}
}

// Compress folds consecutive snapshots with equal state into segments.
// Snapshots must be ordered by time without gaps.
func Compress(snaps []SkaterSnapshot) []Segment {
	out := make([]Segment, 0, 16)
	for _, s := range snaps {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.To == s.Time && last.Skaters == s.Skaters && last.Goalies == s.Goalies {
				last.To = s.Time + 1
				continue
			}
		}
		out = append(out, Segment{From: s.Time, To: s.Time + 1, Skaters: s.Skaters, Goalies: s.Goalies})
	}
	return out
}

// Expand turns segments back into per-second snapshots for [from, to].
// Seconds no segment covers are skipped.
func Expand(segments []Segment, from, to int) []SkaterSnapshot {
	out := make([]SkaterSnapshot, 0, max(0, to-from+1))
	for _, seg := range segments {
		lo, hi := max(seg.From, from), min(seg.To-1, to)
		for t := lo; t <= hi; t++ {
			out = append(out, seg.Snapshot(t))
		}
	}
	return out
}
