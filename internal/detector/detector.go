// Package detector turns consecutive match snapshots into notification-worthy transitions.
package detector

import (
	"sort"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/timeutil"
)

// HalftimeStatus is the normalized status name the feed reports at the interval.
const HalftimeStatus = "HALFTIME"

var fullTimeStatuses = map[string]struct{}{
	"FULL_TIME":        {},
	"FINAL":            {},
	"FINAL_AET":        {},
	"FINAL_PEN":        {},
	"END_OF_EXTRATIME": {},
}

// Detect diffs current against the persisted state and returns the transitions to
// announce together with the state to persist. A nil previous means the match was
// never seen: the returned state initializes it and no transitions fire.
// Each transition kind is judged against its own latch, so one poll may emit several.
func Detect(previous *matches.State, current matches.Snapshot) ([]matches.Transition, matches.State) {
	next := matches.State{
		MatchID:   current.MatchID,
		HomeScore: current.HomeScore,
		AwayScore: current.AwayScore,
	}
	if previous == nil {
		return nil, next
	}

	next = previous.Merge(next)
	var transitions []matches.Transition

	if current.State == matches.StateIn && !previous.KickoffNotified {
		transitions = append(transitions, kickoff(current))
		next.KickoffNotified = true
	}
	if current.StatusDetail == HalftimeStatus && !previous.HalftimeNotified {
		transitions = append(transitions, halftime(current))
		next.HalftimeNotified = true
	}
	if IsFullTime(current) && !previous.FulltimeNotified {
		transitions = append(transitions, fullTime(current))
		next.FulltimeNotified = true
	}
	if current.HomeScore != previous.HomeScore || current.AwayScore != previous.AwayScore {
		scorer, found := LatestScoringEvent(current.ScoringEvents)
		transitions = append(transitions, goal(current, scorer, found))
	}

	return transitions, next
}

// IsFullTime reports whether the snapshot describes a finished match.
func IsFullTime(s matches.Snapshot) bool {
	if s.State == matches.StatePost {
		return true
	}
	_, ok := fullTimeStatuses[s.StatusDetail]
	return ok
}

// LatestScoringEvent returns the scoring event with the largest match clock.
// Events with an unreadable clock count as 0:00; ties keep feed order, so the
// last of equal clocks wins. ok is false when there are no events.
func LatestScoringEvent(events []matches.ScoringEvent) (matches.ScoringEvent, bool) {
	if len(events) == 0 {
		return matches.ScoringEvent{}, false
	}
	sorted := append([]matches.ScoringEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return clockOf(sorted[i]) < clockOf(sorted[j])
	})
	return sorted[len(sorted)-1], true
}

func clockOf(e matches.ScoringEvent) int {
	secs, _ := timeutil.ClockSeconds(e.Clock)
	return secs
}
