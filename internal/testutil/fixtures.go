package testutil

import (
	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// SampleCompetition returns a valid competition pointing at the given feed URL.
func SampleCompetition(id, feedURL string) matches.Competition {
	return matches.Competition{
		ID:        id,
		Name:      "Test " + id,
		FeedURL:   feedURL,
		Namespace: "test",
	}
}

// SampleSnapshot builds a snapshot between teams "home" and "away".
func SampleSnapshot(matchID string, home, away int, state matches.StatusState) matches.Snapshot {
	return matches.Snapshot{
		MatchID:   matchID,
		HomeTeam:  matches.Team{ID: "home", DisplayName: "Home FC", Abbreviation: "HOM"},
		AwayTeam:  matches.Team{ID: "away", DisplayName: "Away United", Abbreviation: "AWY"},
		HomeScore: home,
		AwayScore: away,
		State:     state,
	}
}
