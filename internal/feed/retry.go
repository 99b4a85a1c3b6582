package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
)

const (
	defaultRetryAttempts = 3
	defaultBackoff       = 200 * time.Millisecond
	maxBackoffMultiplier = 10
)

// retryingFetcher wraps a Fetcher with exponential backoff and records feed metrics per attempt.
type retryingFetcher struct {
	inner       Fetcher
	logger      *slog.Logger
	metrics     *metrics.Recorder
	feedName    string
	maxAttempts int
	newBackOff  func() backoff.BackOff
}

// NewRetryingFetcher wraps inner with bounded retries. Rate limited attempts wait for the
// upstream Retry-After instead of the computed backoff. Non-positive values use defaults.
func NewRetryingFetcher(inner Fetcher, logger *slog.Logger, recorder *metrics.Recorder, feedName string, maxAttempts int, initial time.Duration) Fetcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if initial <= 0 {
		initial = defaultBackoff
	}
	if feedName == "" {
		feedName = "feed"
	}
	return &retryingFetcher{
		inner:       inner,
		logger:      logger,
		metrics:     recorder,
		feedName:    feedName,
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = initial * maxBackoffMultiplier
			b.MaxElapsedTime = 0
			return b
		},
	}
}

func (r *retryingFetcher) FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	if r.inner == nil {
		return nil, ErrFeedUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(err)
	}

	policy := &retryAfterBackOff{BackOff: r.newBackOff()}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxAttempts-1)), ctx)

	var (
		result  []matches.Snapshot
		attempt int
	)
	op := func() error {
		attempt++
		start := time.Now()
		snapshots, err := r.inner.FetchMatches(ctx, competition)
		r.metrics.RecordFeedAttempt(r.feedName, time.Since(start), err)
		policy.lastErr = err
		if err != nil {
			if rlErr, ok := AsRateLimitError(err); ok {
				r.metrics.RecordRateLimit(r.feedName, rlErr.RetryAfter)
			}
			return err
		}
		result = snapshots
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logWithFeed(ctx, r.logger, slog.LevelWarn, r.feedName, "feed fetch retry",
			slog.String(logging.FieldCompetition, competition.ID),
			slog.Int(logging.FieldAttempt, attempt),
			slog.Int("max_attempts", r.maxAttempts),
			slog.Duration("wait", wait),
			slog.Any(logging.FieldError, err),
		)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		logWithFeed(ctx, r.logger, slog.LevelWarn, r.feedName, "feed fetch failed",
			slog.String(logging.FieldCompetition, competition.ID),
			slog.Int("attempts", attempt),
			slog.Any(logging.FieldError, err),
		)
		return nil, Unavailable(err)
	}
	return result, nil
}

// retryAfterBackOff prefers the upstream Retry-After hint over the wrapped schedule.
type retryAfterBackOff struct {
	backoff.BackOff
	lastErr error
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if rlErr, ok := AsRateLimitError(b.lastErr); ok && rlErr.RetryAfter > 0 {
		return rlErr.RetryAfter
	}
	return next
}
