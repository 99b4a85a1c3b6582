// Package scheduler triggers poll runs for every configured competition on an interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/runner"
)

const defaultInterval = 30 * time.Second

// CompetitionRunner is the slice of runner.Runner the scheduler drives.
type CompetitionRunner interface {
	Competitions() []matches.Competition
	RunCompetition(ctx context.Context, id string) (matches.RunSummary, error)
}

// Scheduler runs every competition once per tick. Competitions run independently;
// a failing feed for one does not hold back the others.
type Scheduler struct {
	runner   CompetitionRunner
	logger   *slog.Logger
	interval time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool
	wg       sync.WaitGroup

	statusMu sync.RWMutex
	status   Status
	perComp  map[string]Status
}

// Status describes the recent health of the scheduling loop or of one competition.
type Status struct {
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastError           string    `json:"lastError,omitempty"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess"`
}

// Report is the loop status plus the latest status of every competition that has run.
type Report struct {
	Status
	Competitions map[string]Status `json:"competitions"`
}

// IsReady reports whether the scheduler has had a recent clean tick and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

// New constructs a Scheduler; a non-positive interval falls back to 30s.
func New(r CompetitionRunner, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		runner:   r,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
		perComp:  make(map[string]Status),
	}
}

// Start begins ticking until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	if s.started {
		s.startMu.Unlock()
		return
	}
	s.started = true
	s.startMu.Unlock()

	s.ticker = time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logging.Info(s.logger, "scheduler started", slog.Int64(logging.FieldDurationMS, s.interval.Milliseconds()))
		s.tick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.stopTicker()
				logging.Info(s.logger, "scheduler stopped")
				return
			case <-s.done:
				s.stopTicker()
				logging.Info(s.logger, "scheduler stopped")
				return
			case <-s.ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight tick to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.stopTicker()
	})

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	s.recordAttempt(start)

	competitions := s.runner.Competitions()
	errs := make([]error, len(competitions))

	var wg sync.WaitGroup
	for i, c := range competitions {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.runOne(ctx, id)
		}(i, c.ID)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		s.recordFailure(err, start)
		return
	}
	s.recordSuccess(start)
}

// runOne detaches from ctx so a shutdown mid-run still persists what was already sent.
// ctx only stops the ticking; Stop waits for the run.
func (s *Scheduler) runOne(ctx context.Context, id string) error {
	start := time.Now()
	summary, err := s.runner.RunCompetition(context.WithoutCancel(ctx), id)
	if errors.Is(err, runner.ErrRunInProgress) {
		// another process is polling this competition right now
		logging.Info(s.logger, "scheduled run skipped, lease held", slog.String(logging.FieldCompetition, id))
		return nil
	}
	s.recordCompetition(id, err, start)
	if err != nil {
		logging.Error(s.logger, "scheduled run failed", err, slog.String(logging.FieldCompetition, id))
		return err
	}
	logging.Info(s.logger, "scheduled run complete",
		slog.String(logging.FieldCompetition, id),
		slog.Int("notifications_sent", summary.NotificationsSent),
		slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return nil
}

func (s *Scheduler) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *Scheduler) recordAttempt(at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastAttempt = at
}

func (s *Scheduler) recordSuccess(at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.ConsecutiveFailures = 0
	s.status.LastError = ""
	s.status.LastSuccess = at
}

func (s *Scheduler) recordFailure(err error, at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.ConsecutiveFailures++
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.status.LastAttempt = at
}

func (s *Scheduler) recordCompetition(id string, err error, at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	st := s.perComp[id]
	st.LastAttempt = at
	if err != nil {
		st.ConsecutiveFailures++
		st.LastError = err.Error()
	} else {
		st.ConsecutiveFailures = 0
		st.LastError = ""
		st.LastSuccess = at
	}
	s.perComp[id] = st
}

// Status returns a snapshot of the loop's recent health.
func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Report returns the loop status together with a copy of every competition's status.
func (s *Scheduler) Report() Report {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	comps := make(map[string]Status, len(s.perComp))
	for id, st := range s.perComp {
		comps[id] = st
	}
	return Report{Status: s.status, Competitions: comps}
}
