package espn

import (
	"strings"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

func mapEvent(e eventResponse) (matches.Snapshot, bool) {
	if len(e.Competitions) == 0 {
		return matches.Snapshot{}, false
	}
	comp := e.Competitions[0]

	status := comp.Status
	if status.Type.State == "" {
		status = e.Status
	}

	snap := matches.Snapshot{
		MatchID:      e.ID,
		State:        mapState(status.Type.State),
		StatusDetail: normalizeStatusName(status.Type.Name),
	}
	if snap.MatchID == "" {
		snap.MatchID = comp.ID
	}

	for _, c := range comp.Competitors {
		switch strings.ToLower(c.HomeAway) {
		case "home":
			snap.HomeTeam = mapTeam(c.Team)
			snap.HomeScore = int(c.Score)
		case "away":
			snap.AwayTeam = mapTeam(c.Team)
			snap.AwayScore = int(c.Score)
		}
	}

	snap.ScoringEvents = mapScoringEvents(comp.Details)
	return snap, snap.MatchID != ""
}

func mapTeam(t teamResponse) matches.Team {
	return matches.Team{
		ID:           t.ID,
		Abbreviation: t.Abbreviation,
		DisplayName:  t.DisplayName,
	}
}

func mapState(state string) matches.StatusState {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "in":
		return matches.StateIn
	case "post":
		return matches.StatePost
	default:
		return matches.StatePre
	}
}

// normalizeStatusName turns STATUS_HALFTIME into HALFTIME.
func normalizeStatusName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.TrimPrefix(name, statusPrefix)
}

func mapScoringEvents(details []detailResponse) []matches.ScoringEvent {
	var out []matches.ScoringEvent
	for _, d := range details {
		if !d.ScoringPlay {
			continue
		}
		ev := matches.ScoringEvent{
			TeamID: d.Team.ID,
			Clock:  strings.TrimSpace(d.Clock.DisplayValue),
		}
		if len(d.AthletesInvolved) > 0 {
			ev.PlayerName = strings.TrimSpace(d.AthletesInvolved[0].DisplayName)
		}
		out = append(out, ev)
	}
	return out
}
