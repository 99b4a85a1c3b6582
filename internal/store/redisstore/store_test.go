package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

var epl = matches.Competition{ID: "eng.1", Namespace: "epl", FeedURL: "http://feed"}

func newTestStore(t *testing.T, mode IndexMode) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)

	s, err := New(client, Config{SubscriberPrefix: "preferences", Index: mode})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestConnectRequiresAddress(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	require.Error(t, err)
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), Options{Addr: addr, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
}

func TestNewValidatesConfig(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err := New(client, Config{})
	require.Error(t, err)

	_, err = New(client, Config{SubscriberPrefix: "p", Index: "bogus"})
	require.Error(t, err)
}

func TestMatchStateRoundTripUsesDocumentedKeys(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	ctx := context.Background()

	_, ok, err := s.LoadMatchState(ctx, epl, "55")
	require.NoError(t, err)
	assert.False(t, ok)

	want := matches.State{MatchID: "55", HomeScore: 1, AwayScore: 0, KickoffNotified: true, FulltimeNotified: true}
	require.NoError(t, s.SaveMatchState(ctx, epl, want))

	assert.Equal(t, "1", mr.HGet("epl:eng.1:match:55", "homeScore"))
	assert.Equal(t, "0", mr.HGet("epl:eng.1:match:55", "awayScore"))
	assert.Equal(t, "true", mr.HGet("epl:eng.1:notifications:55", "kickoff"))
	assert.Equal(t, "false", mr.HGet("epl:eng.1:notifications:55", "halftime"))
	assert.Equal(t, "true", mr.HGet("epl:eng.1:notifications:55", "fulltime"))

	got, ok, err := s.LoadMatchState(ctx, epl, "55")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLoadMatchStateReadsLegacyPartialHashes(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	mr.HSet("epl:eng.1:match:9", "homeScore", "2", "awayScore", "1")

	got, ok, err := s.LoadMatchState(context.Background(), epl, "9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, matches.State{MatchID: "9", HomeScore: 2, AwayScore: 1}, got)
}

func TestLoadMatchStateRejectsCorruptScores(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	mr.HSet("epl:eng.1:match:9", "homeScore", "two")

	_, _, err := s.LoadMatchState(context.Background(), epl, "9")
	require.Error(t, err)
}

func TestLoadMatchStateSurfacesConnectionErrors(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	mr.SetError("LOADING")

	_, _, err := s.LoadMatchState(context.Background(), epl, "9")
	require.Error(t, err)
}

func TestSetTeamsMaintainsReverseIndex(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	ctx := context.Background()

	require.NoError(t, s.SetTeams(ctx, "u1", []string{"arsenal", "chelsea"}))
	require.NoError(t, s.SetTeams(ctx, "u2", []string{"chelsea"}))

	followers, err := s.SubscribersForTeam(ctx, "chelsea")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, followers)

	require.NoError(t, s.SetTeams(ctx, "u1", []string{"arsenal"}))
	followers, err = s.SubscribersForTeam(ctx, "chelsea")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, followers)

	members, err := mr.SMembers("preferences:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"arsenal"}, members)

	require.NoError(t, s.SetTeams(ctx, "u1", nil))
	assert.False(t, mr.Exists("preferences:u1"))
	followers, err = s.SubscribersForTeam(ctx, "arsenal")
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestScanIndexFindsFollowersFromPreferenceRecords(t *testing.T) {
	s, mr := newTestStore(t, IndexScan)
	ctx := context.Background()

	// records written by an older writer that never built reverse sets
	_, _ = mr.SetAdd("preferences:u1", "arsenal", "chelsea")
	_, _ = mr.SetAdd("preferences:u2", "chelsea")
	_, _ = mr.SetAdd("preferences:u3", "spurs")
	_, _ = mr.SetAdd("preferences:active", "u1", "u2")
	_, _ = mr.SetAdd("preferences:team:chelsea", "stale")

	followers, err := s.SubscribersForTeam(ctx, "chelsea")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, followers)

	followers, err = s.SubscribersForTeam(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestActiveSubscribers(t *testing.T) {
	s, _ := newTestStore(t, IndexReverse)
	ctx := context.Background()

	require.NoError(t, s.SetActive(ctx, "a", true))
	require.NoError(t, s.SetActive(ctx, "b", true))
	require.NoError(t, s.SetActive(ctx, "b", false))

	got, err := s.ActiveSubscribers(ctx, []string{"b", "a", "z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got, err = s.ActiveSubscribers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLeaseLifecycle(t *testing.T) {
	s, mr := newTestStore(t, IndexReverse)
	ctx := context.Background()
	key := store.KeysFor(epl).Lease()

	first, err := s.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.Token(), mustGet(t, mr, key))

	_, err = s.Acquire(ctx, key, time.Minute)
	require.ErrorIs(t, err, store.ErrLeaseHeld)

	mr.FastForward(2 * time.Minute)
	second, err := s.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	// stale holder releasing must not drop the new owner's lease
	require.NoError(t, first.Release(ctx))
	assert.Equal(t, second.Token(), mustGet(t, mr, key))

	require.NoError(t, second.Release(ctx))
	assert.False(t, mr.Exists(key))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestStoreImplementsBackend(t *testing.T) {
	var _ store.Backend = (*Store)(nil)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "a", "b", "b"}))
	assert.Equal(t, []string{"a"}, dedupe([]string{"a"}))
	assert.Empty(t, dedupe(nil))
}
