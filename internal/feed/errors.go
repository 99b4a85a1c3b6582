package feed

import (
	"errors"
	"fmt"
	"time"
)

// ErrFeedUnavailable marks a fetch that failed or returned an unexpected shape.
var ErrFeedUnavailable = errors.New("feed unavailable")

// RateLimitError captures rate limit responses from the upstream scoreboard.
type RateLimitError struct {
	Feed       string
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "feed rate limited"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status=%d)", msg, e.StatusCode)
	}
	return msg
}

// Is lets a rate limit count as the feed being unavailable.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrFeedUnavailable
}

// AsRateLimitError attempts to unwrap an error into a RateLimitError.
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}

// Unavailable wraps err so it satisfies errors.Is(err, ErrFeedUnavailable).
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrFeedUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
}
