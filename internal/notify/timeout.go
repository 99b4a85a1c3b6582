package notify

import (
	"context"
	"fmt"
	"time"
)

type timeoutNotifier struct {
	inner   Notifier
	timeout time.Duration
}

// NewTimeoutNotifier bounds every delivery of inner to timeout, returning once the deadline
// passes even if inner ignores its context. A panic in inner is returned as an error.
// A non-positive timeout returns inner unchanged.
func NewTimeoutNotifier(inner Notifier, timeout time.Duration) Notifier {
	if timeout <= 0 {
		return inner
	}
	return &timeoutNotifier{inner: inner, timeout: timeout}
}

func (t *timeoutNotifier) Notify(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panic: %v", r)
			}
		}()
		done <- t.inner.Notify(ctx, n)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("deliver to %s: %w", n.RecipientID, ctx.Err())
	}
}
