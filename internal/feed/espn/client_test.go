package espn

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/feed"
)

const scoreboardBody = `{
	"events": [
		{
			"id": "55",
			"name": "Arsenal at Chelsea",
			"competitions": [{
				"id": "55",
				"status": {"displayClock": "45'+2'", "type": {"state": "in", "name": "STATUS_HALFTIME", "completed": false}},
				"competitors": [
					{"homeAway": "home", "score": "1", "team": {"id": "363", "abbreviation": "CHE", "displayName": "Chelsea"}},
					{"homeAway": "away", "score": "0", "team": {"id": "359", "abbreviation": "ARS", "displayName": "Arsenal"}}
				],
				"details": [
					{"scoringPlay": true, "clock": {"displayValue": "12'"}, "team": {"id": "363"}, "athletesInvolved": [{"displayName": "Cole Palmer"}]},
					{"yellowCard": true, "clock": {"displayValue": "30'"}, "team": {"id": "359"}, "athletesInvolved": [{"displayName": "Declan Rice"}]}
				]
			}]
		},
		{
			"id": "56",
			"competitions": [{
				"status": {"type": {"state": "pre", "name": "STATUS_SCHEDULED"}},
				"competitors": [
					{"homeAway": "home", "score": "0", "team": {"id": "1"}},
					{"homeAway": "away", "score": "0", "team": {"id": "2"}}
				]
			}]
		},
		{
			"id": "57",
			"competitions": [{
				"status": {"type": {"state": "post", "name": "STATUS_FULL_TIME", "completed": true}},
				"competitors": [
					{"homeAway": "home", "score": 2, "team": {"id": "3"}},
					{"homeAway": "away", "score": 2, "team": {"id": "4"}}
				]
			}]
		}
	]
}`

var testCompetition = matches.Competition{
	ID:        matches.PremierLeague,
	FeedURL:   "http://example.com/soccer/eng.1/scoreboard",
	Namespace: "epl",
}

func TestFetchMatchesHitsFeedAndMapsResponse(t *testing.T) {
	var capturedURL, capturedAgent string
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAgent = req.Header.Get("User-Agent")
		return jsonResponse(http.StatusOK, scoreboardBody), nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	snaps, err := client.FetchMatches(context.Background(), testCompetition)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if capturedURL != testCompetition.FeedURL {
		t.Fatalf("expected request to %s, got %s", testCompetition.FeedURL, capturedURL)
	}
	if capturedAgent != defaultUserAgent {
		t.Fatalf("expected default user agent, got %s", capturedAgent)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected pre match to be filtered out, got %d snapshots", len(snaps))
	}

	live := snaps[0]
	if live.MatchID != "55" || live.State != matches.StateIn {
		t.Fatalf("unexpected live snapshot %+v", live)
	}
	if live.StatusDetail != "HALFTIME" {
		t.Fatalf("expected normalized status name, got %s", live.StatusDetail)
	}
	if live.HomeTeamID() != "363" || live.AwayTeamID() != "359" || live.HomeScore != 1 || live.AwayScore != 0 {
		t.Fatalf("unexpected teams/scores %+v", live)
	}
	if len(live.ScoringEvents) != 1 || live.ScoringEvents[0].PlayerName != "Cole Palmer" {
		t.Fatalf("expected only the scoring play, got %+v", live.ScoringEvents)
	}

	final := snaps[1]
	if final.State != matches.StatePost || final.StatusDetail != "FULL_TIME" || final.HomeScore != 2 {
		t.Fatalf("unexpected finished snapshot %+v", final)
	}
}

func TestFetchMatchesHandlesNon200(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusBadGateway, "boom"), nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	if _, err := client.FetchMatches(context.Background(), testCompetition); !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected feed unavailable on non-200 response, got %v", err)
	}
}

func TestFetchMatchesRateLimited(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		resp := jsonResponse(http.StatusTooManyRequests, "")
		resp.Header.Set("Retry-After", "7")
		return resp, nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	_, err := client.FetchMatches(context.Background(), testCompetition)
	rl, ok := feed.AsRateLimitError(err)
	if !ok {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rl.RetryAfter != 7*time.Second || rl.Feed != feedName {
		t.Fatalf("unexpected rate limit error %+v", rl)
	}
	if !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected rate limit to count as unavailable")
	}
}

func TestFetchMatchesHandlesDecodeError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusOK, "{bad json"), nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	if _, err := client.FetchMatches(context.Background(), testCompetition); !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected decode error to be feed unavailable, got %v", err)
	}
}

func TestFetchMatchesRequiresEventsCollection(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusOK, `{"leagues": []}`), nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	if _, err := client.FetchMatches(context.Background(), testCompetition); !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected missing events to be feed unavailable, got %v", err)
	}
}

func TestFetchMatchesEmptyEventsIsNotAnError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusOK, `{"events": []}`), nil
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	snaps, err := client.FetchMatches(context.Background(), testCompetition)
	if err != nil || len(snaps) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", snaps, err)
	}
}

func TestFetchMatchesTransportError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return nil, context.DeadlineExceeded
	})

	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	_, err := client.FetchMatches(context.Background(), testCompetition)
	if !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected timeout to be feed unavailable, got %v", err)
	}
}

func TestFetchMatchesRequiresFeedURL(t *testing.T) {
	client := NewClient(Config{})

	if _, err := client.FetchMatches(context.Background(), matches.Competition{ID: "x"}); !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("expected feed unavailable for missing url, got %v", err)
	}
}

func TestNewClientSetsDefaultHTTPClient(t *testing.T) {
	c := NewClient(Config{})
	httpClient, ok := c.httpClient.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client")
	}
	if httpClient.Timeout == 0 {
		t.Fatalf("expected timeout to be set on default http client")
	}
	if c.Name() != "espn" {
		t.Fatalf("unexpected feed name %s", c.Name())
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
