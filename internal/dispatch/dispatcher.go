// Package dispatch fans a transition out to every active follower of the teams involved.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
	"github.com/preston-bernstein/matchday-notifier/internal/notify"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
)

const (
	// DefaultBatchSize bounds concurrent deliveries for one transition.
	DefaultBatchSize       = 40
	defaultDeliveryTimeout = 5 * time.Second
)

// Config wires the dispatcher's collaborators.
type Config struct {
	Index           store.SubscriberIndex
	Active          store.ActiveSet
	Notifier        notify.Notifier
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
	BatchSize       int
	DeliveryTimeout time.Duration
}

// Dispatcher delivers transitions in sequential batches of concurrent sends.
type Dispatcher struct {
	index     store.SubscriberIndex
	active    store.ActiveSet
	notifier  notify.Notifier
	logger    *slog.Logger
	metrics   *metrics.Recorder
	batchSize int
}

// New builds a Dispatcher. Zero BatchSize and DeliveryTimeout fall back to 40 and 5s.
func New(cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Dispatcher{
		index:     cfg.Index,
		active:    cfg.Active,
		notifier:  notify.NewTimeoutNotifier(cfg.Notifier, cfg.DeliveryTimeout),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		batchSize: cfg.BatchSize,
	}
}

// Dispatch resolves recipients for t and attempts one delivery per active subscriber.
// It never fails: delivery problems are reported per recipient, and a lookup failure
// is logged and yields no results.
func (d *Dispatcher) Dispatch(ctx context.Context, competition string, t matches.Transition) []matches.DispatchResult {
	logger := logging.FromContext(ctx, d.logger)
	if logger != nil {
		logger = logger.With(
			slog.String(logging.FieldCompetition, competition),
			slog.String(logging.FieldMatchID, t.MatchID),
			slog.String(logging.FieldTransition, string(t.Kind)),
		)
	}

	recipients, err := d.recipients(ctx, t)
	if err != nil {
		logging.Warn(logger, "subscriber lookup failed", slog.Any(logging.FieldError, err))
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	results := make([]matches.DispatchResult, len(recipients))
	for start := 0; start < len(recipients); start += d.batchSize {
		end := min(start+d.batchSize, len(recipients))
		d.deliverBatch(ctx, competition, t, recipients[start:end], results[start:end])
		for _, r := range results[start:end] {
			if !r.Success {
				logging.Debug(logger, "delivery failed",
					slog.String(logging.FieldRecipient, r.RecipientID),
					slog.String(logging.FieldError, r.Error),
				)
			}
		}

		logging.Info(logger, "batch delivered",
			slog.Int(logging.FieldBatch, start/d.batchSize),
			slog.Int(logging.FieldCount, end-start),
		)
	}

	failed := len(results) - matches.CountDelivered(results)
	if failed > 0 {
		logging.Warn(logger, "some deliveries failed",
			slog.Int(logging.FieldFailed, failed),
			slog.Int(logging.FieldCount, len(results)),
		)
	}
	return results
}

// recipients unions both teams' followers and keeps the active ones.
func (d *Dispatcher) recipients(ctx context.Context, t matches.Transition) ([]string, error) {
	seen := make(map[string]struct{})
	for _, team := range t.TeamIDs() {
		ids, err := d.index.SubscribersForTeam(ctx, team)
		if err != nil {
			return nil, fmt.Errorf("followers of %s: %w", team, err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}

	union := make([]string, 0, len(seen))
	for id := range seen {
		union = append(union, id)
	}
	sort.Strings(union)

	active, err := d.active.ActiveSubscribers(ctx, union)
	if err != nil {
		return nil, fmt.Errorf("active filter: %w", err)
	}
	return active, nil
}

// deliverBatch sends to every recipient concurrently and returns once all have finished.
func (d *Dispatcher) deliverBatch(ctx context.Context, competition string, t matches.Transition, batch []string, out []matches.DispatchResult) {
	var g errgroup.Group
	g.SetLimit(len(batch))

	for i, recipient := range batch {
		i, recipient := i, recipient
		g.Go(func() error {
			out[i] = d.deliver(ctx, competition, t, recipient)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, competition string, t matches.Transition, recipient string) (result matches.DispatchResult) {
	result.RecipientID = recipient
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("notifier panic: %v", r)
		}
		var err error
		if !result.Success {
			err = errors.New(result.Error)
		}
		d.metrics.RecordDelivery(competition, string(t.Kind), time.Since(start), err)
	}()

	if err := d.notifier.Notify(ctx, notify.ForRecipient(recipient, t)); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}
