package matches

import "fmt"

// StatusState mirrors the upstream coarse match lifecycle.
type StatusState string

const (
	StatePre  StatusState = "pre"
	StateIn   StatusState = "in"
	StatePost StatusState = "post"
)

// IsTracked reports whether matches in this state are processed by the pipeline.
func (s StatusState) IsTracked() bool {
	return s == StateIn || s == StatePost
}

// Team is the normalized team shape carried on a snapshot.
type Team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

// Label returns the most readable name available for the team.
func (t Team) Label() string {
	switch {
	case t.DisplayName != "":
		return t.DisplayName
	case t.Abbreviation != "":
		return t.Abbreviation
	default:
		return t.ID
	}
}

// ScoringEvent is one scoring play reported by the feed.
type ScoringEvent struct {
	TeamID     string `json:"teamId"`
	PlayerName string `json:"playerName"`
	Clock      string `json:"clock"`
}

// Snapshot is one fetch's view of a match. It is compared, never mutated.
type Snapshot struct {
	MatchID       string         `json:"matchId"`
	HomeTeam      Team           `json:"homeTeam"`
	AwayTeam      Team           `json:"awayTeam"`
	HomeScore     int            `json:"homeScore"`
	AwayScore     int            `json:"awayScore"`
	State         StatusState    `json:"state"`
	StatusDetail  string         `json:"statusDetail"`
	ScoringEvents []ScoringEvent `json:"scoringEvents,omitempty"`
}

func (s Snapshot) HomeTeamID() string { return s.HomeTeam.ID }
func (s Snapshot) AwayTeamID() string { return s.AwayTeam.ID }

// ScoreLine renders "Home 1 - 0 Away".
func (s Snapshot) ScoreLine() string {
	return fmt.Sprintf("%s %d - %d %s", s.HomeTeam.Label(), s.HomeScore, s.AwayScore, s.AwayTeam.Label())
}

// State is the persisted per-match record. Latches only ever move from false to true.
type State struct {
	MatchID          string `json:"matchId"`
	HomeScore        int    `json:"homeScore"`
	AwayScore        int    `json:"awayScore"`
	KickoffNotified  bool   `json:"kickoffNotified"`
	HalftimeNotified bool   `json:"halftimeNotified"`
	FulltimeNotified bool   `json:"fulltimeNotified"`
}

// Merge overlays next onto s, taking next's scores while keeping any latch already set.
func (s State) Merge(next State) State {
	return State{
		MatchID:          next.MatchID,
		HomeScore:        next.HomeScore,
		AwayScore:        next.AwayScore,
		KickoffNotified:  s.KickoffNotified || next.KickoffNotified,
		HalftimeNotified: s.HalftimeNotified || next.HalftimeNotified,
		FulltimeNotified: s.FulltimeNotified || next.FulltimeNotified,
	}
}

// TransitionKind identifies a notification-worthy change.
type TransitionKind string

const (
	KindKickoff  TransitionKind = "kickoff"
	KindHalftime TransitionKind = "halftime"
	KindFullTime TransitionKind = "fulltime"
	KindGoal     TransitionKind = "goal"
)

// Transition is produced by the detector and consumed once by the dispatcher.
type Transition struct {
	Kind       TransitionKind `json:"kind"`
	MatchID    string         `json:"matchId"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	HomeTeamID string         `json:"homeTeamId"`
	AwayTeamID string         `json:"awayTeamId"`
}

// TeamIDs returns the teams whose followers receive this transition.
func (t Transition) TeamIDs() []string {
	ids := make([]string, 0, 2)
	if t.HomeTeamID != "" {
		ids = append(ids, t.HomeTeamID)
	}
	if t.AwayTeamID != "" && t.AwayTeamID != t.HomeTeamID {
		ids = append(ids, t.AwayTeamID)
	}
	return ids
}

// DispatchResult records one attempted delivery.
type DispatchResult struct {
	RecipientID string `json:"recipientId"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// CountDelivered returns how many results succeeded.
func CountDelivered(results []DispatchResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
