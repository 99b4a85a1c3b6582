// Package pipeline assembles the poll pipeline from configuration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/preston-bernstein/matchday-notifier/internal/config"
	"github.com/preston-bernstein/matchday-notifier/internal/dispatch"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
	"github.com/preston-bernstein/matchday-notifier/internal/feed/espn"
	"github.com/preston-bernstein/matchday-notifier/internal/feed/fixture"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
	"github.com/preston-bernstein/matchday-notifier/internal/notify"
	"github.com/preston-bernstein/matchday-notifier/internal/runner"
	"github.com/preston-bernstein/matchday-notifier/internal/store"
	"github.com/preston-bernstein/matchday-notifier/internal/store/redisstore"
)

const (
	FeedESPN    = "espn"
	FeedFixture = "fixture"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	NotifierLog     = "log"
	NotifierWebhook = "webhook"
	NotifierNATS    = "nats"
)

const natsClientName = "matchday-notifier"

// Pipeline is the assembled runner plus the handles the entry point must close.
type Pipeline struct {
	Runner   *runner.Runner
	Store    store.Backend
	Notifier notify.Notifier

	closers []func() error
}

// Close releases the store and notifier connections.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Build wires feed, store, notifier, dispatcher and runner. On error every
// connection opened so far is closed.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (_ *Pipeline, err error) {
	p := &Pipeline{}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	fetcher, err := buildFeed(cfg.Feed, logger, recorder)
	if err != nil {
		return nil, err
	}

	backend, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	p.Store = backend
	p.closers = append(p.closers, backend.Close)

	notifier, closeNotifier, err := buildNotifier(cfg.Notifier, logger)
	if err != nil {
		return nil, err
	}
	p.Notifier = notifier
	if closeNotifier != nil {
		p.closers = append(p.closers, closeNotifier)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Index:           backend,
		Active:          backend,
		Notifier:        notifier,
		Logger:          logger,
		Metrics:         recorder,
		BatchSize:       cfg.Dispatch.BatchSize,
		DeliveryTimeout: cfg.Notifier.Timeout,
	})

	p.Runner = runner.New(runner.Config{
		Feed:         fetcher,
		States:       backend,
		Locker:       backend,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      recorder,
		FetchTimeout: fetchBudget(cfg.Feed),
		LeaseTTL:     cfg.Store.LeaseTTL,
		Competitions: cfg.Competitions,
	})

	logging.Info(logger, "pipeline assembled",
		slog.String(logging.FieldFeed, feedName(cfg.Feed.Provider)),
		slog.String("store", cfg.Store.Backend),
		slog.String("notifier", cfg.Notifier.Kind),
		slog.Int(logging.FieldCount, len(cfg.Competitions)),
	)
	return p, nil
}

// buildFeed assembles the feed with the shared wrappers (throttle + retry).
func buildFeed(cfg config.FeedConfig, logger *slog.Logger, recorder *metrics.Recorder) (feed.Fetcher, error) {
	name := feedName(cfg.Provider)

	var base feed.Fetcher
	switch name {
	case FeedESPN:
		base = espn.NewClient(espn.Config{
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		})
	case FeedFixture:
		base = fixture.New()
	default:
		return nil, fmt.Errorf("unknown feed provider %q", cfg.Provider)
	}

	limited := feed.NewThrottledFetcher(base, cfg.MinInterval, logger)
	return feed.NewRetryingFetcher(limited, logger, recorder, name, cfg.RetryAttempts, cfg.RetryBackoff), nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory, "":
		return store.NewMemoryStore(), nil
	case BackendRedis:
		client, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, err
		}
		s, err := redisstore.New(client, redisstore.Config{
			SubscriberPrefix: cfg.SubscriberKeyPrefix,
			Index:            redisstore.IndexMode(strings.ToLower(cfg.SubscriberIndex)),
		})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildNotifier(cfg config.NotifierConfig, logger *slog.Logger) (notify.Notifier, func() error, error) {
	switch strings.ToLower(cfg.Kind) {
	case NotifierLog, "":
		return notify.NewLogNotifier(logger), nil, nil
	case NotifierWebhook:
		n, err := notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:   cfg.WebhookURL,
			Token: cfg.WebhookToken,
		})
		if err != nil {
			return nil, nil, err
		}
		return n, nil, nil
	case NotifierNATS:
		nc, err := notify.ConnectNATS(cfg.NatsURL, natsClientName, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		n, err := notify.NewBusNotifier(nc, cfg.SubjectPrefix)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return n, nc.Drain, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier %q", cfg.Kind)
	}
}

// fetchBudget bounds one run's fetch: every attempt at the request timeout, the
// longest backoff between attempts, and one throttle wait.
func fetchBudget(cfg config.FeedConfig) time.Duration {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	n := time.Duration(attempts)
	return n*cfg.Timeout + (n-1)*10*cfg.RetryBackoff + cfg.MinInterval
}

func feedName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return FeedESPN
	}
	return name
}
