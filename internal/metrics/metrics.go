package metrics

import (
	"sync"
	"time"
)

type feedStats struct {
	calls           int
	errors          int
	rateLimitHits   int
	lastRetryAfter  time.Duration
	lastCallLatency time.Duration
}

type pipelineStats struct {
	runs           int
	runErrors      int
	transitions    map[string]int
	deliveries     int
	deliveryErrors int
}

// Recorder captures lightweight, in-memory metrics and forwards them to OpenTelemetry when configured.
type Recorder struct {
	mu       sync.Mutex
	feeds    map[string]*feedStats
	pipeline map[string]*pipelineStats
	otel     *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		feeds:    make(map[string]*feedStats),
		pipeline: make(map[string]*pipelineStats),
		otel:     otel,
	}
}

// RecordFeedAttempt increments counters for a feed call and stores the last observed latency.
func (r *Recorder) RecordFeedAttempt(feed string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.feedStatsLocked(feed)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordFeedAttempt(feed, duration, err)
	}
}

// RecordRateLimit tracks that a feed response hit a rate limit and stores the last Retry-After.
func (r *Recorder) RecordRateLimit(feed string, retryAfter time.Duration) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.feedStatsLocked(feed)
	stats.rateLimitHits++
	if retryAfter > 0 {
		stats.lastRetryAfter = retryAfter
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordRateLimit(feed, retryAfter)
	}
}

// RecordPollRun tracks one PollRunner invocation for a competition.
func (r *Recorder) RecordPollRun(competition string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.pipelineStatsLocked(competition)
	stats.runs++
	if err != nil {
		stats.runErrors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordPollRun(competition, duration, err)
	}
}

// RecordTransition counts a detected transition by kind.
func (r *Recorder) RecordTransition(competition, kind string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.pipelineStatsLocked(competition)
	stats.transitions[kind]++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordTransition(competition, kind)
	}
}

// RecordDelivery tracks one notification delivery attempt.
func (r *Recorder) RecordDelivery(competition, kind string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.pipelineStatsLocked(competition)
	stats.deliveries++
	if err != nil {
		stats.deliveryErrors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordDelivery(competition, kind, duration, err)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// FeedCalls returns the total attempts recorded for a feed.
func (r *Recorder) FeedCalls(feed string) int {
	return r.Snapshot(feed).Calls
}

// FeedErrors returns the total failed attempts recorded for a feed.
func (r *Recorder) FeedErrors(feed string) int {
	return r.Snapshot(feed).Errors
}

// RateLimitHits returns the number of rate limit events seen for a feed.
func (r *Recorder) RateLimitHits(feed string) int {
	return r.Snapshot(feed).RateLimitHits
}

// Snapshot is a copy of the current stats for a feed.
type Snapshot struct {
	Calls           int
	Errors          int
	RateLimitHits   int
	LastRetryAfter  time.Duration
	LastCallLatency time.Duration
}

func (r *Recorder) Snapshot(feed string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.feeds[feed]
	if !ok || stats == nil {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		RateLimitHits:   stats.rateLimitHits,
		LastRetryAfter:  stats.lastRetryAfter,
		LastCallLatency: stats.lastCallLatency,
	}
}

// PipelineSnapshot is a copy of the per-competition pipeline counters.
type PipelineSnapshot struct {
	Runs           int
	RunErrors      int
	Transitions    map[string]int
	Deliveries     int
	DeliveryErrors int
}

func (r *Recorder) Pipeline(competition string) PipelineSnapshot {
	if r == nil {
		return PipelineSnapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.pipeline[competition]
	if !ok || stats == nil {
		return PipelineSnapshot{Transitions: map[string]int{}}
	}
	transitions := make(map[string]int, len(stats.transitions))
	for k, v := range stats.transitions {
		transitions[k] = v
	}
	return PipelineSnapshot{
		Runs:           stats.runs,
		RunErrors:      stats.runErrors,
		Transitions:    transitions,
		Deliveries:     stats.deliveries,
		DeliveryErrors: stats.deliveryErrors,
	}
}

func (r *Recorder) feedStatsLocked(feed string) *feedStats {
	stats, ok := r.feeds[feed]
	if !ok {
		stats = &feedStats{}
		r.feeds[feed] = stats
	}
	return stats
}

func (r *Recorder) pipelineStatsLocked(competition string) *pipelineStats {
	stats, ok := r.pipeline[competition]
	if !ok {
		stats = &pipelineStats{transitions: make(map[string]int)}
		r.pipeline[competition] = stats
	}
	return stats
}
