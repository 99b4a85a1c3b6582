package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
)

// Config controls how the scoreboard client reaches the upstream API.
type Config struct {
	HTTPClient *http.Client
	UserAgent  string
}

// Client fetches competition scoreboards and maps them to match snapshots.
type Client struct {
	httpClient httpDoer
	userAgent  string
	now        func() time.Time
}

// NewClient constructs a scoreboard client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		userAgent:  resolveUserAgent(cfg.UserAgent),
		now:        time.Now,
	}
}

// Name identifies the feed in logs and metrics.
func (c *Client) Name() string { return feedName }

// FetchMatches retrieves the competition's scoreboard and returns live and finished matches.
func (c *Client) FetchMatches(ctx context.Context, competition matches.Competition) ([]matches.Snapshot, error) {
	if strings.TrimSpace(competition.FeedURL) == "" {
		return nil, feed.Unavailable(fmt.Errorf("espn: competition %s has no feed url", competition.ID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, competition.FeedURL, nil)
	if err != nil {
		return nil, feed.Unavailable(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, feed.Unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &feed.RateLimitError{
			Feed:       feedName,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			Message:    "espn: rate limited",
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, feed.Unavailable(fmt.Errorf("espn: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload scoreboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, feed.Unavailable(fmt.Errorf("espn: decode scoreboard: %w", err))
	}
	if payload.Events == nil {
		return nil, feed.Unavailable(errors.New("espn: scoreboard has no events collection"))
	}

	snapshots := make([]matches.Snapshot, 0, len(*payload.Events))
	for _, e := range *payload.Events {
		snap, ok := mapEvent(e)
		if !ok {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return feed.FilterTracked(snapshots), nil
}
