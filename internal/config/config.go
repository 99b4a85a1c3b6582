package config

import "github.com/preston-bernstein/matchday-notifier/internal/domain/matches"

// Config holds runtime configuration for the service.
type Config struct {
	Port         string
	TriggerToken string
	Competitions []matches.Competition
	Feed         FeedConfig
	Store        StoreConfig
	Notifier     NotifierConfig
	Dispatch     DispatchConfig
	Scheduler    SchedulerConfig
	Metrics      MetricsConfig
}

// Load reads configuration from environment variables with sensible defaults.
// Competitions come from COMPETITIONS (preset ids) and, when set, COMPETITIONS_FILE.
func Load() (Config, error) {
	competitions, err := loadCompetitions()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Port:         envOrDefault(envPort, defaultPort),
		TriggerToken: envOrDefault(envTriggerToken, ""),
		Competitions: competitions,
		Feed:         loadFeed(),
		Store:        loadStore(),
		Notifier:     loadNotifier(),
		Dispatch:     loadDispatch(),
		Scheduler:    loadScheduler(),
		Metrics:      loadMetrics(),
	}, nil
}

// Competition looks up a configured competition by id.
func (c Config) Competition(id string) (matches.Competition, bool) {
	for _, comp := range c.Competitions {
		if comp.ID == id {
			return comp, true
		}
	}
	return matches.Competition{}, false
}
