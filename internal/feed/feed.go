package feed

import (
	"context"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// Fetcher returns the live and finished matches of one competition.
// Implementations filter out pre-match snapshots and never retry or cache;
// retry and pacing policy belong to the caller (see NewRetryingFetcher, NewThrottledFetcher).
// Every failure satisfies errors.Is(err, ErrFeedUnavailable).
type Fetcher interface {
	FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error)
}

// FilterTracked keeps only snapshots in a state the pipeline processes.
func FilterTracked(snapshots []matches.Snapshot) []matches.Snapshot {
	out := make([]matches.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.State.IsTracked() {
			out = append(out, s)
		}
	}
	return out
}
