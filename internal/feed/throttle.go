package feed

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
)

const defaultMinInterval = time.Second

// throttledFetcher enforces a minimum spacing between upstream calls across all competitions.
type throttledFetcher struct {
	next    Fetcher
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottledFetcher returns a Fetcher that admits at most one call per interval.
// The first call is admitted immediately; later calls block until their slot or ctx is done.
func NewThrottledFetcher(next Fetcher, interval time.Duration, logger *slog.Logger) Fetcher {
	if interval <= 0 {
		interval = defaultMinInterval
	}
	return &throttledFetcher{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

func (t *throttledFetcher) FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	if t == nil || t.next == nil {
		return nil, ErrFeedUnavailable
	}
	if err := t.limiter.Wait(ctx); err != nil {
		logWithFeed(ctx, t.logger, slog.LevelWarn, "throttled", "throttled fetch canceled", slog.Any(logging.FieldError, err))
		return nil, Unavailable(err)
	}
	return t.next.FetchMatches(ctx, competition)
}
