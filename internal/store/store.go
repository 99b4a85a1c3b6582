// Package store defines the persistence and subscriber lookups the poll pipeline relies on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// ErrLeaseHeld is returned by Locker.Acquire when another holder owns the key.
var ErrLeaseHeld = errors.New("lease held by another run")

// StateStore persists per-match scores and notification latches.
type StateStore interface {
	// LoadMatchState returns ok=false when the match has never been saved.
	LoadMatchState(ctx context.Context, competition matches.Competition, matchID string) (state matches.State, ok bool, err error)
	SaveMatchState(ctx context.Context, competition matches.Competition, state matches.State) error
}

// SubscriberIndex resolves the subscribers following a team.
type SubscriberIndex interface {
	SubscribersForTeam(ctx context.Context, teamID string) ([]string, error)
}

// SubscriberWriter maintains subscriber preferences.
type SubscriberWriter interface {
	// SetTeams replaces the set of teams a subscriber follows.
	SetTeams(ctx context.Context, subscriberID string, teamIDs []string) error
	SetActive(ctx context.Context, subscriberID string, active bool) error
}

// ActiveSet filters subscriber ids down to the ones allowed to receive notifications.
type ActiveSet interface {
	ActiveSubscribers(ctx context.Context, ids []string) ([]string, error)
}

// Locker grants short-lived advisory leases.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held advisory lock. Release is a no-op once the lease expired or was taken over.
type Lease interface {
	Token() string
	Release(ctx context.Context) error
}

// Backend bundles every capability a storage implementation provides.
type Backend interface {
	StateStore
	SubscriberIndex
	SubscriberWriter
	ActiveSet
	Locker
	Close() error
}
