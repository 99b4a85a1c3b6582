package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

// IndexMode selects how team followers are resolved.
type IndexMode string

const (
	// IndexReverse reads the team -> subscribers sets maintained by SetTeams.
	IndexReverse IndexMode = "reverse"
	// IndexScan walks every preference record under the prefix.
	IndexScan IndexMode = "scan"
)

// Config controls key layout and subscriber lookup.
type Config struct {
	SubscriberPrefix string
	Index            IndexMode
}

// Store is a store.Backend on Redis.
type Store struct {
	client redis.UniversalClient
	keys   store.SubscriberKeys
	index  store.SubscriberIndex
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// New wraps an already connected client. The store owns the client from here on and Close closes it.
func New(client redis.UniversalClient, cfg Config) (*Store, error) {
	if cfg.SubscriberPrefix == "" {
		return nil, errors.New("subscriber prefix is required")
	}
	keys := store.SubscriberKeys{Prefix: cfg.SubscriberPrefix}

	s := &Store{client: client, keys: keys}
	switch cfg.Index {
	case IndexReverse, "":
		s.index = &ReverseIndex{client: client, keys: keys}
	case IndexScan:
		s.index = &ScanIndex{client: client, keys: keys}
	default:
		return nil, fmt.Errorf("unknown subscriber index %q", cfg.Index)
	}
	return s, nil
}

// LoadMatchState reads both hashes of a match in one round trip.
func (s *Store) LoadMatchState(ctx context.Context, competition matches.Competition, matchID string) (matches.State, bool, error) {
	keys := store.KeysFor(competition)

	var scores, flags *redis.MapStringStringCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		scores = p.HGetAll(ctx, keys.Match(matchID))
		flags = p.HGetAll(ctx, keys.Notifications(matchID))
		return nil
	})
	if err != nil {
		return matches.State{}, false, fmt.Errorf("load match %s: %w", matchID, err)
	}

	scoreFields, flagFields := scores.Val(), flags.Val()
	if len(scoreFields) == 0 && len(flagFields) == 0 {
		return matches.State{}, false, nil
	}

	state := matches.State{MatchID: matchID}
	if state.HomeScore, err = intField(scoreFields, store.FieldHomeScore); err != nil {
		return matches.State{}, false, fmt.Errorf("load match %s: %w", matchID, err)
	}
	if state.AwayScore, err = intField(scoreFields, store.FieldAwayScore); err != nil {
		return matches.State{}, false, fmt.Errorf("load match %s: %w", matchID, err)
	}
	state.KickoffNotified = boolField(flagFields, store.FieldKickoff)
	state.HalftimeNotified = boolField(flagFields, store.FieldHalftime)
	state.FulltimeNotified = boolField(flagFields, store.FieldFulltime)
	return state, true, nil
}

// SaveMatchState writes scores and latches in a single MULTI.
func (s *Store) SaveMatchState(ctx context.Context, competition matches.Competition, state matches.State) error {
	keys := store.KeysFor(competition)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, keys.Match(state.MatchID),
			store.FieldHomeScore, state.HomeScore,
			store.FieldAwayScore, state.AwayScore,
		)
		p.HSet(ctx, keys.Notifications(state.MatchID),
			store.FieldKickoff, strconv.FormatBool(state.KickoffNotified),
			store.FieldHalftime, strconv.FormatBool(state.HalftimeNotified),
			store.FieldFulltime, strconv.FormatBool(state.FulltimeNotified),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save match %s: %w", state.MatchID, err)
	}
	return nil
}

// SubscribersForTeam delegates to the configured index.
func (s *Store) SubscribersForTeam(ctx context.Context, teamID string) ([]string, error) {
	return s.index.SubscribersForTeam(ctx, teamID)
}

// SetTeams replaces a subscriber's teams and updates the reverse sets atomically.
// The preference key is watched so a concurrent update forces a retry instead of a torn index.
func (s *Store) SetTeams(ctx context.Context, subscriberID string, teamIDs []string) error {
	subKey := s.keys.Subscriber(subscriberID)

	update := func(tx *redis.Tx) error {
		previous, err := tx.SMembers(ctx, subKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, team := range previous {
				p.SRem(ctx, s.keys.Team(team), subscriberID)
			}
			p.Del(ctx, subKey)
			if len(teamIDs) == 0 {
				return nil
			}
			members := make([]any, len(teamIDs))
			for i, team := range teamIDs {
				members[i] = team
				p.SAdd(ctx, s.keys.Team(team), subscriberID)
			}
			p.SAdd(ctx, subKey, members...)
			return nil
		})
		return err
	}

	const maxAttempts = 3
	var err error
	for i := 0; i < maxAttempts; i++ {
		err = s.client.Watch(ctx, update, subKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("set teams for %s: %w", subscriberID, err)
	}
	return nil
}

// SetActive adds or removes a subscriber from the active set.
func (s *Store) SetActive(ctx context.Context, subscriberID string, active bool) error {
	var err error
	if active {
		err = s.client.SAdd(ctx, s.keys.Active(), subscriberID).Err()
	} else {
		err = s.client.SRem(ctx, s.keys.Active(), subscriberID).Err()
	}
	if err != nil {
		return fmt.Errorf("set active for %s: %w", subscriberID, err)
	}
	return nil
}

// ActiveSubscribers checks membership of all ids with one SMISMEMBER.
func (s *Store) ActiveSubscribers(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	flags, err := s.client.SMIsMember(ctx, s.keys.Active(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("check active subscribers: %w", err)
	}

	out := make([]string, 0, len(ids))
	for i, ok := range flags {
		if ok && i < len(ids) {
			out = append(out, ids[i])
		}
	}
	return out, nil
}

// Acquire takes the lease with SET NX PX.
func (s *Store) Acquire(ctx context.Context, key string, ttl time.Duration) (store.Lease, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, store.ErrLeaseHeld
	}
	return &lease{client: s.client, key: key, token: token}, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

type lease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *lease) Token() string { return l.token }

// Release deletes the key only while it still carries this lease's token.
func (l *lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}

func intField(fields map[string]string, name string) (int, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

func boolField(fields map[string]string, name string) bool {
	v, err := strconv.ParseBool(fields[name])
	return err == nil && v
}
