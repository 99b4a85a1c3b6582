// Package notify delivers one notification to one subscriber.
package notify

import (
	"context"
	"fmt"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

// Notification is the payload handed to a Notifier.
type Notification struct {
	RecipientID string                 `json:"recipientId"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Kind        matches.TransitionKind `json:"kind"`
	MatchID     string                 `json:"matchId"`
}

// Notifier sends a notification to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ForRecipient addresses a transition to one subscriber.
func ForRecipient(recipientID string, t matches.Transition) Notification {
	return Notification{
		RecipientID: recipientID,
		Title:       t.Title,
		Body:        t.Body,
		Kind:        t.Kind,
		MatchID:     t.MatchID,
	}
}

// DeliveryError reports a push gateway rejecting a notification.
type DeliveryError struct {
	RecipientID string
	StatusCode  int
	Message     string
}

func (e *DeliveryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("delivery to %s failed (status=%d)", e.RecipientID, e.StatusCode)
	}
	return fmt.Sprintf("delivery to %s failed (status=%d): %s", e.RecipientID, e.StatusCode, e.Message)
}
