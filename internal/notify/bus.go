package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn the bus notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// BusNotifier hands notifications to a NATS subject per recipient for a downstream pusher.
type BusNotifier struct {
	pub    Publisher
	prefix string
}

// NewBusNotifier publishes on "{prefix}.{recipientId}".
func NewBusNotifier(pub Publisher, prefix string) (*BusNotifier, error) {
	if pub == nil {
		return nil, errors.New("nats publisher is required")
	}
	if prefix == "" {
		return nil, errors.New("nats subject prefix is required")
	}
	return &BusNotifier{pub: pub, prefix: prefix}, nil
}

// Subject returns the subject a recipient's notifications are published on.
func (b *BusNotifier) Subject(recipientID string) string {
	return b.prefix + "." + recipientID
}

func (b *BusNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := b.pub.Publish(b.Subject(n.RecipientID), data); err != nil {
		return fmt.Errorf("publish to %s: %w", b.Subject(n.RecipientID), err)
	}
	return nil
}

// ConnectNATS dials the server with a named connection and bounded reconnects.
func ConnectNATS(url, name string, timeout time.Duration) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}
