package fixture

import (
	"context"
	"sync"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
)

// Feed serves a deterministic scoreboard per competition for local runs and tests.
type Feed struct {
	mu     sync.RWMutex
	boards map[string][]matches.Snapshot
	err    error
}

// New creates a fixture feed seeded with a small example scoreboard for every preset.
func New() *Feed {
	f := &Feed{boards: make(map[string][]matches.Snapshot)}
	for _, id := range matches.PresetIDs() {
		f.boards[id] = sampleBoard(id)
	}
	return f
}

// SetMatches replaces the scoreboard served for a competition.
func (f *Feed) SetMatches(competitionID string, snapshots []matches.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[competitionID] = cloneSnapshots(snapshots)
}

// Fail makes every subsequent fetch return err wrapped as feed unavailable; nil clears it.
func (f *Feed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// FetchMatches returns the in and post snapshots stored for the competition.
func (f *Feed) FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, feed.Unavailable(err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return nil, feed.Unavailable(f.err)
	}
	return feed.FilterTracked(cloneSnapshots(f.boards[competition.ID])), nil
}

func cloneSnapshots(in []matches.Snapshot) []matches.Snapshot {
	out := make([]matches.Snapshot, len(in))
	for i, s := range in {
		s.ScoringEvents = append([]matches.ScoringEvent(nil), s.ScoringEvents...)
		out[i] = s
	}
	return out
}

func sampleBoard(competitionID string) []matches.Snapshot {
	home := matches.Team{ID: competitionID + "-home", Abbreviation: "HOM", DisplayName: "Home FC"}
	away := matches.Team{ID: competitionID + "-away", Abbreviation: "AWY", DisplayName: "Away United"}
	return []matches.Snapshot{
		{
			MatchID:      competitionID + "-fixture-1",
			HomeTeam:     home,
			AwayTeam:     away,
			HomeScore:    1,
			AwayScore:    0,
			State:        matches.StateIn,
			StatusDetail: "FIRST_HALF",
			ScoringEvents: []matches.ScoringEvent{
				{TeamID: home.ID, PlayerName: "Fixture Striker", Clock: "23'"},
			},
		},
		{
			MatchID:      competitionID + "-fixture-2",
			HomeTeam:     away,
			AwayTeam:     home,
			State:        matches.StatePre,
			StatusDetail: "SCHEDULED",
		},
	}
}
