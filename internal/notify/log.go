package notify

import (
	"context"
	"log/slog"

	"github.com/preston-bernstein/matchday-notifier/internal/logging"
)

// LogNotifier only logs; it backs dry runs and local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := logging.FromContext(ctx, l.logger)
	logging.Info(logger, "notification",
		logging.FieldRecipient, n.RecipientID,
		logging.FieldMatchID, n.MatchID,
		logging.FieldTransition, string(n.Kind),
		"title", n.Title,
		"body", n.Body,
	)
	return nil
}
