package server

import (
	"context"

	"github.com/preston-bernstein/matchday-notifier/internal/scheduler"
)

// Scheduler defines the minimal scheduler behavior needed by the server.
type Scheduler interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Report() scheduler.Report
}
