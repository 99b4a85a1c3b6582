package store

import (
	"errors"
	"strings"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// Field names inside the match and notification hashes.
const (
	FieldHomeScore = "homeScore"
	FieldAwayScore = "awayScore"
	FieldKickoff   = "kickoff"
	FieldHalftime  = "halftime"
	FieldFulltime  = "fulltime"
)

const (
	teamSegment   = "team"
	activeSegment = "active"
)

// MatchKeys builds the keys of one competition's match state.
type MatchKeys struct {
	Namespace   string
	Competition string
}

// KeysFor returns the key builder for a competition.
func KeysFor(c matches.Competition) MatchKeys {
	return MatchKeys{Namespace: c.Namespace, Competition: c.ID}
}

// Match is the hash holding the last known scores.
func (k MatchKeys) Match(matchID string) string {
	return join(k.Namespace, k.Competition, "match", matchID)
}

// Notifications is the hash holding the notification latches.
func (k MatchKeys) Notifications(matchID string) string {
	return join(k.Namespace, k.Competition, "notifications", matchID)
}

// Lease is the advisory lock key guarding one competition's run.
func (k MatchKeys) Lease() string {
	return join(k.Namespace, k.Competition, "lease")
}

// SubscriberKeys builds the keys of the subscriber preference records.
type SubscriberKeys struct {
	Prefix string
}

// Subscriber is the set of teams one subscriber follows.
func (k SubscriberKeys) Subscriber(subscriberID string) string {
	return join(k.Prefix, subscriberID)
}

// Team is the reverse set of subscribers following one team.
func (k SubscriberKeys) Team(teamID string) string {
	return join(k.Prefix, teamSegment, teamID)
}

// Active is the set of subscribers allowed to receive notifications.
func (k SubscriberKeys) Active() string {
	return join(k.Prefix, activeSegment)
}

// Pattern matches every key under the prefix, for SCAN.
func (k SubscriberKeys) Pattern() string {
	return join(k.Prefix, "*")
}

// SubscriberID extracts the subscriber id from a preference key.
// Reverse index and active set keys share the prefix and report ok=false.
func (k SubscriberKeys) SubscriberID(key string) (string, bool) {
	rest, found := strings.CutPrefix(key, k.Prefix+":")
	if !found || rest == "" || rest == activeSegment || strings.HasPrefix(rest, teamSegment+":") {
		return "", false
	}
	return rest, true
}

// ErrInvalidSubscriberID rejects ids that would collide with the index key layout.
var ErrInvalidSubscriberID = errors.New("invalid subscriber id")

// ValidateSubscriberID reports whether id can be stored under the preference prefix.
func ValidateSubscriberID(id string) error {
	if id == "" || id == activeSegment || strings.ContainsAny(id, ": \t\n") {
		return ErrInvalidSubscriberID
	}
	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}
