package testutil

import (
	"github.com/preston-bernstein/matchday-notifier/internal/dispatch"
	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
	"github.com/preston-bernstein/matchday-notifier/internal/notify"
	"github.com/preston-bernstein/matchday-notifier/internal/runner"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

// NewMemoryRunner wires a runner over a fresh in-memory store.
func NewMemoryRunner(competitions []matches.Competition, f feed.Fetcher, n notify.Notifier) (*runner.Runner, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	r := runner.New(runner.Config{
		Feed:   f,
		States: ms,
		Locker: ms,
		Dispatcher: dispatch.New(dispatch.Config{
			Index:    ms,
			Active:   ms,
			Notifier: n,
		}),
		Competitions: competitions,
	})
	return r, ms
}
