package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

type competitionsFile struct {
	Competitions []matches.Competition `koanf:"competitions"`
}

// loadCompetitions resolves the competitions to poll.
// Order of precedence (low -> high):
//  1. presets named in COMPETITIONS (all presets when unset)
//  2. entries from the YAML file at COMPETITIONS_FILE, merged by id
func loadCompetitions() ([]matches.Competition, error) {
	selected, err := presetCompetitions(envOrDefault(envCompetitions, ""))
	if err != nil {
		return nil, err
	}

	path := strings.TrimSpace(os.Getenv(envCompetitionsFile))
	if path == "" {
		return selected, nil
	}
	fromFile, err := LoadCompetitionsFile(path)
	if err != nil {
		return nil, err
	}
	return mergeCompetitions(selected, fromFile), nil
}

// LoadCompetitionsFile parses a YAML document of the form:
//
//	competitions:
//	  - id: eng.1
//	    name: Premier League
//	    feed_url: https://...
//	    namespace: epl
//
// Entries whose id matches a preset inherit any field they leave empty.
func LoadCompetitionsFile(path string) ([]matches.Competition, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load competitions file %s: %w", path, err)
	}

	var doc competitionsFile
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode competitions file %s: %w", path, err)
	}

	out := make([]matches.Competition, 0, len(doc.Competitions))
	for _, c := range doc.Competitions {
		c = withPresetDefaults(c)
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("competitions file %s: %w", path, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func presetCompetitions(raw string) ([]matches.Competition, error) {
	ids := matches.PresetIDs()
	if strings.TrimSpace(raw) != "" {
		ids = ids[:0:0]
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	out := make([]matches.Competition, 0, len(ids))
	for _, id := range ids {
		c, ok := matches.Preset(id)
		if !ok {
			return nil, fmt.Errorf("unknown competition preset %q", id)
		}
		out = append(out, c)
	}
	return out, nil
}

func withPresetDefaults(c matches.Competition) matches.Competition {
	preset, ok := matches.Preset(c.ID)
	if !ok {
		return c
	}
	if c.Name == "" {
		c.Name = preset.Name
	}
	if c.FeedURL == "" {
		c.FeedURL = preset.FeedURL
	}
	if c.Namespace == "" {
		c.Namespace = preset.Namespace
	}
	return c
}

func mergeCompetitions(base, overrides []matches.Competition) []matches.Competition {
	out := append([]matches.Competition(nil), base...)
	index := make(map[string]int, len(out))
	for i, c := range out {
		index[c.ID] = i
	}
	for _, c := range overrides {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}
