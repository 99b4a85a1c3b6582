// Package runner executes one poll cycle for a competition.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/preston-bernstein/matchday-notifier/internal/detector"
	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

var (
	// ErrRunInProgress means another run holds the competition's lease.
	ErrRunInProgress = errors.New("poll run already in progress")
	// ErrUnknownCompetition means the requested competition is not configured.
	ErrUnknownCompetition = errors.New("unknown competition")
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultLeaseTTL     = 2 * time.Minute
)

// Dispatcher fans one transition out to subscribers.
type Dispatcher interface {
	Dispatch(ctx context.Context, competition string, t matches.Transition) []matches.DispatchResult
}

// Config wires the runner's collaborators.
type Config struct {
	Feed         feed.Fetcher
	States       store.StateStore
	Locker       store.Locker
	Dispatcher   Dispatcher
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
	FetchTimeout time.Duration
	LeaseTTL     time.Duration
	Competitions []matches.Competition
}

// Runner orchestrates fetch, detect, dispatch and persist for one competition at a time.
// Matches are processed sequentially; the lease keeps overlapping runs of the same
// competition from reading the same stale state.
type Runner struct {
	feed         feed.Fetcher
	states       store.StateStore
	locker       store.Locker
	dispatcher   Dispatcher
	logger       *slog.Logger
	metrics      *metrics.Recorder
	fetchTimeout time.Duration
	leaseTTL     time.Duration
	competitions []matches.Competition
	newRunID     func() string
}

// New builds a Runner. A nil Locker disables the lease.
func New(cfg Config) *Runner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}
	return &Runner{
		feed:         cfg.Feed,
		states:       cfg.States,
		locker:       cfg.Locker,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		fetchTimeout: cfg.FetchTimeout,
		leaseTTL:     cfg.LeaseTTL,
		competitions: append([]matches.Competition(nil), cfg.Competitions...),
		newRunID:     uuid.NewString,
	}
}

// Competitions returns the configured competitions.
func (r *Runner) Competitions() []matches.Competition {
	return append([]matches.Competition(nil), r.competitions...)
}

// Competition looks up a configured competition by id.
func (r *Runner) Competition(id string) (matches.Competition, bool) {
	for _, c := range r.competitions {
		if c.ID == id {
			return c, true
		}
	}
	return matches.Competition{}, false
}

// RunCompetition runs the configured competition with the given id.
func (r *Runner) RunCompetition(ctx context.Context, id string) (matches.RunSummary, error) {
	competition, ok := r.Competition(id)
	if !ok {
		return matches.RunSummary{Competition: id}, fmt.Errorf("%w: %s", ErrUnknownCompetition, id)
	}
	return r.Run(ctx, competition)
}

// Run polls one competition. It fails only when the lease is held or the feed is
// unavailable; in both cases nothing is persisted or sent. Per-match read and write
// failures are logged and counted in the summary.
func (r *Runner) Run(ctx context.Context, competition matches.Competition) (summary matches.RunSummary, err error) {
	summary = matches.RunSummary{
		Competition:         competition.ID,
		RunID:               r.newRunID(),
		TransitionSummaries: []string{},
	}
	start := time.Now()
	logger := logging.FromContext(ctx, r.logger)
	if logger != nil {
		logger = logger.With(
			slog.String(logging.FieldCompetition, competition.ID),
			slog.String(logging.FieldRunID, summary.RunID),
		)
	}
	defer func() {
		recorded := err
		if errors.Is(err, ErrRunInProgress) {
			recorded = nil
		}
		r.metrics.RecordPollRun(competition.ID, time.Since(start), recorded)
	}()

	if err := competition.Validate(); err != nil {
		return summary, err
	}

	release, err := r.acquire(ctx, competition)
	if err != nil {
		return summary, err
	}
	defer release()

	snapshots, err := r.fetch(ctx, competition)
	if err != nil {
		logging.Error(logger, "feed unavailable", err)
		return summary, err
	}

	for _, snap := range snapshots {
		r.processMatch(ctx, logger, competition, snap, &summary)
	}

	logging.Info(logger, "poll run complete",
		slog.Int("matches_processed", summary.MatchesProcessed),
		slog.Int("matches_skipped", summary.MatchesSkipped),
		slog.Int("notifications_sent", summary.NotificationsSent),
		slog.Int("notifications_failed", summary.NotificationsFailed),
		slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return summary, nil
}

func (r *Runner) acquire(ctx context.Context, competition matches.Competition) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	lease, err := r.locker.Acquire(ctx, store.KeysFor(competition).Lease(), r.leaseTTL)
	if errors.Is(err, store.ErrLeaseHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	return func() {
		// release even when the run's context is already done
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(ctx); err != nil {
			logging.Warn(r.logger, "lease release failed", slog.Any(logging.FieldError, err))
		}
	}, nil
}

func (r *Runner) fetch(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	snapshots, err := r.feed.FetchMatches(ctx, competition)
	if err != nil {
		return nil, feed.Unavailable(err)
	}
	return snapshots, nil
}

func (r *Runner) processMatch(ctx context.Context, logger *slog.Logger, competition matches.Competition, snap matches.Snapshot, summary *matches.RunSummary) {
	if logger != nil {
		logger = logger.With(slog.String(logging.FieldMatchID, snap.MatchID))
	}

	previous, found, err := r.states.LoadMatchState(ctx, competition, snap.MatchID)
	if err != nil {
		logging.Warn(logger, "match state read failed, skipping match", slog.Any(logging.FieldError, err))
		summary.MatchesSkipped++
		return
	}

	var prev *matches.State
	if found {
		prev = &previous
	}
	transitions, next := detector.Detect(prev, snap)

	for _, t := range transitions {
		r.metrics.RecordTransition(competition.ID, string(t.Kind))
		results := r.dispatcher.Dispatch(ctx, competition.ID, t)
		sent := matches.CountDelivered(results)
		summary.NotificationsSent += sent
		summary.NotificationsFailed += len(results) - sent
		summary.TransitionSummaries = append(summary.TransitionSummaries,
			fmt.Sprintf("%s %s: %s (%d/%d delivered)", t.Kind, snap.MatchID, t.Body, sent, len(results)))
	}

	if err := r.states.SaveMatchState(ctx, competition, next); err != nil {
		logging.Error(logger, "match state write failed, next poll may repeat notifications", err,
			slog.Int("transitions", len(transitions)),
		)
		summary.StateWriteFailures++
	}
	summary.MatchesProcessed++
}
