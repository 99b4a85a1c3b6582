package redisstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

const scanPageSize = 200

// ReverseIndex reads the team -> subscribers set directly.
type ReverseIndex struct {
	client redis.UniversalClient
	keys   store.SubscriberKeys
}

// SubscribersForTeam returns the members of the team's reverse set, sorted.
func (r *ReverseIndex) SubscribersForTeam(ctx context.Context, teamID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.keys.Team(teamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reverse index lookup %s: %w", teamID, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ScanIndex derives followers by scanning every preference record. Cost grows with
// the number of subscribers; it serves deployments whose reverse sets were never built.
type ScanIndex struct {
	client redis.UniversalClient
	keys   store.SubscriberKeys
}

// SubscribersForTeam walks the prefix with SCAN and checks each record for the team.
func (s *ScanIndex) SubscribersForTeam(ctx context.Context, teamID string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keys.Pattern(), scanPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan subscribers: %w", err)
		}

		found, err := s.followersIn(ctx, keys, teamID)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)

		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(out)
	return dedupe(out), nil
}

func (s *ScanIndex) followersIn(ctx context.Context, keys []string, teamID string) ([]string, error) {
	type candidate struct {
		id  string
		cmd *redis.BoolCmd
	}
	candidates := make([]candidate, 0, len(keys))

	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			id, ok := s.keys.SubscriberID(key)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{id: id, cmd: p.SIsMember(ctx, key, teamID)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan subscribers: %w", err)
	}

	var out []string
	for _, c := range candidates {
		if c.cmd.Val() {
			out = append(out, c.id)
		}
	}
	return out, nil
}

// dedupe drops repeats from a sorted slice; SCAN may return a key more than once.
func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
