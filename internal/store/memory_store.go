package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// MemoryStore keeps match state, subscriber preferences and leases in process memory.
// It implements Backend and is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	states      map[string]matches.State
	subscribers map[string]map[string]struct{}
	teams       map[string]map[string]struct{}
	active      map[string]struct{}
	leases      map[string]memoryLeaseEntry
	now         func() time.Time
}

type memoryLeaseEntry struct {
	token   string
	expires time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:      make(map[string]matches.State),
		subscribers: make(map[string]map[string]struct{}),
		teams:       make(map[string]map[string]struct{}),
		active:      make(map[string]struct{}),
		leases:      make(map[string]memoryLeaseEntry),
		now:         time.Now,
	}
}

// LoadMatchState returns the stored state for a match.
func (s *MemoryStore) LoadMatchState(ctx context.Context, competition matches.Competition, matchID string) (matches.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return matches.State{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[KeysFor(competition).Match(matchID)]
	return st, ok, nil
}

// SaveMatchState overwrites the stored state for a match.
func (s *MemoryStore) SaveMatchState(ctx context.Context, competition matches.Competition, state matches.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[KeysFor(competition).Match(state.MatchID)] = state
	return nil
}

// SubscribersForTeam returns the followers of a team in sorted order.
func (s *MemoryStore) SubscribersForTeam(ctx context.Context, teamID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.teams[teamID]), nil
}

// SetTeams replaces the teams a subscriber follows and keeps the reverse index in step.
func (s *MemoryStore) SetTeams(ctx context.Context, subscriberID string, teamIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for team := range s.subscribers[subscriberID] {
		if followers := s.teams[team]; followers != nil {
			delete(followers, subscriberID)
			if len(followers) == 0 {
				delete(s.teams, team)
			}
		}
	}

	if len(teamIDs) == 0 {
		delete(s.subscribers, subscriberID)
		return nil
	}

	set := make(map[string]struct{}, len(teamIDs))
	for _, team := range teamIDs {
		set[team] = struct{}{}
		if s.teams[team] == nil {
			s.teams[team] = make(map[string]struct{})
		}
		s.teams[team][subscriberID] = struct{}{}
	}
	s.subscribers[subscriberID] = set
	return nil
}

// SetActive adds or removes a subscriber from the active set.
func (s *MemoryStore) SetActive(ctx context.Context, subscriberID string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if active {
		s.active[subscriberID] = struct{}{}
	} else {
		delete(s.active, subscriberID)
	}
	return nil
}

// ActiveSubscribers keeps the ids present in the active set, preserving input order.
func (s *MemoryStore) ActiveSubscribers(ctx context.Context, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.active[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Acquire grants the lease when the key is free or its previous holder expired.
func (s *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if held, ok := s.leases[key]; ok && now.Before(held.expires) {
		return nil, ErrLeaseHeld
	}
	token := uuid.NewString()
	s.leases[key] = memoryLeaseEntry{token: token, expires: now.Add(ttl)}
	return &memoryLease{store: s, key: key, token: token}, nil
}

// Close is a no-op; it lets MemoryStore satisfy Backend.
func (s *MemoryStore) Close() error { return nil }

type memoryLease struct {
	store *MemoryStore
	key   string
	token string
}

func (l *memoryLease) Token() string { return l.token }

func (l *memoryLease) Release(ctx context.Context) error {
	_ = ctx
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	if held, ok := l.store.leases[l.key]; ok && held.token == l.token {
		delete(l.store.leases, l.key)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
