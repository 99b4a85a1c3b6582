package timeutil

import (
	"strconv"
	"strings"
)

// DefaultClock is reported when a scoring event carries no usable clock.
const DefaultClock = "00:00"

// ClockSeconds converts a match clock into elapsed seconds.
// Accepted forms are "MM:SS", minute marks like "45'" and stoppage marks like "90'+3'".
// Anything else yields 0 and ok=false so callers can fall back to "0:00".
func ClockSeconds(raw string) (seconds int, ok bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}

	if minutes, secs, found := strings.Cut(value, ":"); found {
		m, err := strconv.Atoi(strings.TrimSpace(minutes))
		if err != nil || m < 0 {
			return 0, false
		}
		s, err := strconv.Atoi(strings.TrimSpace(secs))
		if err != nil || s < 0 || s >= 60 {
			return 0, false
		}
		return m*60 + s, true
	}

	total := 0
	for _, part := range strings.Split(value, "+") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "'"))
		m, err := strconv.Atoi(part)
		if err != nil || m < 0 {
			return 0, false
		}
		total += m
	}
	return total * 60, true
}

// DisplayClock returns raw, or DefaultClock when raw is blank.
func DisplayClock(raw string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return DefaultClock
}
