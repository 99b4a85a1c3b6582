package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/notify"
)

// StubFetcher is a test double for feed.Fetcher.
type StubFetcher struct {
	Snapshots []matches.Snapshot
	Err       error
	Calls     atomic.Int32
	Notify    chan struct{}

	mu   sync.Mutex
	last matches.Competition
}

// FetchMatches returns configured snapshots and error while tracking calls.
func (s *StubFetcher) FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	_ = ctx
	if s.Notify != nil {
		select {
		case <-s.Notify:
		default:
			close(s.Notify)
		}
	}
	s.Calls.Add(1)
	s.mu.Lock()
	s.last = competition
	s.mu.Unlock()
	return s.Snapshots, s.Err
}

// LastCompetition returns the competition passed to the most recent fetch.
func (s *StubFetcher) LastCompetition() matches.Competition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// StubNotifier is a test double for notify.Notifier. Deliveries to recipients
// listed in Fail return that error; recipients listed in Panic panic.
type StubNotifier struct {
	Fail  map[string]error
	Panic map[string]bool
	Calls atomic.Int32

	mu   sync.Mutex
	sent []notify.Notification
}

// Notify records the notification and returns the configured outcome.
func (s *StubNotifier) Notify(ctx context.Context, n notify.Notification) error {
	_ = ctx
	s.Calls.Add(1)
	if s.Panic[n.RecipientID] {
		panic("stub notifier panic for " + n.RecipientID)
	}
	if err := s.Fail[n.RecipientID]; err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, n)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of successfully delivered notifications.
func (s *StubNotifier) Sent() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.sent...)
}

// SentTo counts successful deliveries to one recipient.
func (s *StubNotifier) SentTo(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sent := range s.sent {
		if sent.RecipientID == recipient {
			n++
		}
	}
	return n
}
