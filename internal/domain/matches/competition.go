package matches

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in competition ids. Each one is a preset of the same pipeline.
const (
	PremierLeague   = "eng.1"
	ChampionsLeague = "uefa.champions"
	LaLiga          = "esp.1"
)

const scoreboardURLFormat = "https://site.api.espn.com/apis/site/v2/sports/soccer/%s/scoreboard"

// Competition parameterizes one poll pipeline run.
type Competition struct {
	ID        string `json:"id" koanf:"id"`
	Name      string `json:"name" koanf:"name"`
	FeedURL   string `json:"feedUrl" koanf:"feed_url"`
	Namespace string `json:"namespace" koanf:"namespace"`
}

// Validate reports whether the competition carries everything a run needs.
func (c Competition) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("competition id is required")
	}
	if strings.TrimSpace(c.FeedURL) == "" {
		return fmt.Errorf("competition %s: feed url is required", c.ID)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("competition %s: namespace is required", c.ID)
	}
	return nil
}

// ScoreboardURL returns the default scoreboard endpoint for a league slug.
func ScoreboardURL(slug string) string {
	return fmt.Sprintf(scoreboardURLFormat, slug)
}

var presets = map[string]Competition{
	PremierLeague: {
		ID:        PremierLeague,
		Name:      "Premier League",
		FeedURL:   ScoreboardURL(PremierLeague),
		Namespace: "epl",
	},
	ChampionsLeague: {
		ID:        ChampionsLeague,
		Name:      "UEFA Champions League",
		FeedURL:   ScoreboardURL(ChampionsLeague),
		Namespace: "ucl",
	},
	LaLiga: {
		ID:        LaLiga,
		Name:      "LaLiga",
		FeedURL:   ScoreboardURL(LaLiga),
		Namespace: "laliga",
	},
}

// Preset returns the built-in competition for id.
func Preset(id string) (Competition, bool) {
	c, ok := presets[id]
	return c, ok
}

// PresetIDs lists the built-in competition ids in stable order.
func PresetIDs() []string {
	ids := make([]string, 0, len(presets))
	for id := range presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunSummary is the outcome of one poll run for a competition.
type RunSummary struct {
	Competition         string   `json:"competition"`
	RunID               string   `json:"runId"`
	MatchesProcessed    int      `json:"matchesProcessed"`
	MatchesSkipped      int      `json:"matchesSkipped"`
	NotificationsSent   int      `json:"notificationsSent"`
	NotificationsFailed int      `json:"notificationsFailed"`
	StateWriteFailures  int      `json:"stateWriteFailures"`
	TransitionSummaries []string `json:"transitionSummaries"`
}
