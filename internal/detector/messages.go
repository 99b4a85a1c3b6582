package detector

import (
	"fmt"
	"strings"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/timeutil"
)

// DefaultScorer stands in when the feed has no scoring detail for a goal.
const DefaultScorer = "Goal"

func kickoff(s matches.Snapshot) matches.Transition {
	return newTransition(matches.KindKickoff, s,
		fmt.Sprintf("Kick-off: %s vs %s", s.HomeTeam.Label(), s.AwayTeam.Label()),
		fmt.Sprintf("%s vs %s is underway.", s.HomeTeam.Label(), s.AwayTeam.Label()),
	)
}

func halftime(s matches.Snapshot) matches.Transition {
	return newTransition(matches.KindHalftime, s,
		"Half-time",
		fmt.Sprintf("Half-time: %s", s.ScoreLine()),
	)
}

func fullTime(s matches.Snapshot) matches.Transition {
	return newTransition(matches.KindFullTime, s,
		"Full-time",
		fmt.Sprintf("Full-time: %s", s.ScoreLine()),
	)
}

func goal(s matches.Snapshot, scorer matches.ScoringEvent, found bool) matches.Transition {
	name := DefaultScorer
	clock := timeutil.DefaultClock
	if found {
		if n := strings.TrimSpace(scorer.PlayerName); n != "" {
			name = n
		}
		clock = timeutil.DisplayClock(scorer.Clock)
	}

	title := "Goal!"
	if team := scoringTeam(s, scorer.TeamID); found && team != "" {
		title = fmt.Sprintf("Goal for %s!", team)
	}
	return newTransition(matches.KindGoal, s,
		title,
		fmt.Sprintf("%s (%s). %s", name, clock, s.ScoreLine()),
	)
}

func scoringTeam(s matches.Snapshot, teamID string) string {
	switch {
	case teamID == "":
		return ""
	case teamID == s.HomeTeam.ID:
		return s.HomeTeam.Label()
	case teamID == s.AwayTeam.ID:
		return s.AwayTeam.Label()
	default:
		return ""
	}
}

func newTransition(kind matches.TransitionKind, s matches.Snapshot, title, body string) matches.Transition {
	return matches.Transition{
		Kind:       kind,
		MatchID:    s.MatchID,
		Title:      title,
		Body:       body,
		HomeTeamID: s.HomeTeamID(),
		AwayTeamID: s.AwayTeamID(),
	}
}
