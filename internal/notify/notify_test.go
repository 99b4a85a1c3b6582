package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
)

var sample = Notification{
	RecipientID: "ExponentPushToken[abc]",
	Title:       "Goal!",
	Body:        "Striker (45:00). Home 1 - 0 Away",
	Kind:        matches.KindGoal,
	MatchID:     "55",
}

func TestForRecipient(t *testing.T) {
	tr := matches.Transition{Kind: matches.KindKickoff, MatchID: "9", Title: "t", Body: "b"}
	n := ForRecipient("u1", tr)
	assert.Equal(t, Notification{RecipientID: "u1", Title: "t", Body: "b", Kind: matches.KindKickoff, MatchID: "9"}, n)
}

func TestDeliveryErrorString(t *testing.T) {
	assert.Contains(t, (&DeliveryError{RecipientID: "u", StatusCode: 400, Message: "bad token"}).Error(), "bad token")
	assert.Contains(t, (&DeliveryError{RecipientID: "u", StatusCode: 503}).Error(), "503")
}

func TestWebhookNotifierPostsPushMessage(t *testing.T) {
	var (
		got  pushMessage
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), sample))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, sample.RecipientID, got.To)
	assert.Equal(t, sample.Title, got.Title)
	assert.Equal(t, sample.Body, got.Body)
	assert.Equal(t, "goal", got.Data.Kind)
	assert.Equal(t, "55", got.Data.MatchID)
}

func TestWebhookNotifierNon2xxIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("DeviceNotRegistered"))
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	err = n.Notify(context.Background(), sample)
	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, http.StatusBadRequest, delivery.StatusCode)
	assert.Equal(t, "DeviceNotRegistered", delivery.Message)
}

func TestWebhookNotifierTransportError(t *testing.T) {
	n, err := NewWebhookNotifier(WebhookConfig{
		URL: "http://push.invalid",
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial failed")
		})},
	})
	require.NoError(t, err)
	require.Error(t, n.Notify(context.Background(), sample))
}

func TestNewWebhookNotifierRequiresURL(t *testing.T) {
	_, err := NewWebhookNotifier(WebhookConfig{})
	require.Error(t, err)

	n, err := NewWebhookNotifier(WebhookConfig{URL: "http://x"})
	require.NoError(t, err)
	client, ok := n.httpClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, defaultWebhookTimeout, client.Timeout)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestBusNotifierPublishesPerRecipientSubject(t *testing.T) {
	pub := &recordingPublisher{}
	b, err := NewBusNotifier(pub, "notifications")
	require.NoError(t, err)

	require.NoError(t, b.Notify(context.Background(), sample))

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "notifications."+sample.RecipientID, pub.subjects[0])

	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, sample, decoded)
}

func TestBusNotifierErrors(t *testing.T) {
	_, err := NewBusNotifier(nil, "p")
	require.Error(t, err)
	_, err = NewBusNotifier(&recordingPublisher{}, "")
	require.Error(t, err)

	b, err := NewBusNotifier(&recordingPublisher{err: errors.New("no responders")}, "p")
	require.NoError(t, err)
	require.Error(t, b.Notify(context.Background(), sample))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Notify(ctx, sample), context.Canceled)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "matchday", time.Second)
	require.Error(t, err)
}

func TestLogNotifierLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), sample))
	out := buf.String()
	assert.Contains(t, out, "recipient=")
	assert.Contains(t, out, "transition=goal")

	require.NoError(t, NewLogNotifier(nil).Notify(context.Background(), sample))
}

type notifierFunc func(ctx context.Context, n Notification) error

func (f notifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

func TestTimeoutNotifierBoundsUncooperativeDelivery(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := notifierFunc(func(ctx context.Context, n Notification) error {
		<-release
		return nil
	})

	start := time.Now()
	err := NewTimeoutNotifier(slow, 20*time.Millisecond).Notify(context.Background(), sample)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTimeoutNotifierRecoversPanics(t *testing.T) {
	boom := notifierFunc(func(ctx context.Context, n Notification) error {
		panic("boom")
	})
	err := NewTimeoutNotifier(boom, time.Second).Notify(context.Background(), sample)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "panic"))
}

func TestTimeoutNotifierPassesThrough(t *testing.T) {
	ok := notifierFunc(func(ctx context.Context, n Notification) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("expected deadline")
		}
		return nil
	})
	require.NoError(t, NewTimeoutNotifier(ok, time.Second).Notify(context.Background(), sample))

	if NewTimeoutNotifier(ok, 0) == nil {
		t.Fatalf("expected inner notifier when timeout disabled")
	}
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
