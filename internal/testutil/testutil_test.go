package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/teststubs"
)

func TestFixturesHelper(t *testing.T) {
	c := SampleCompetition("eng.1", "http://feed")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid competition, got %v", err)
	}
	s := SampleSnapshot("m1", 2, 1, matches.StateIn)
	if s.MatchID != "m1" || s.HomeTeamID() == "" || s.AwayTeamID() == "" {
		t.Fatalf("unexpected snapshot fixture %+v", s)
	}
	if !strings.Contains(s.ScoreLine(), "2 - 1") {
		t.Fatalf("unexpected score line %s", s.ScoreLine())
	}
}

func TestServeHelpers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true,"auth":"` + r.Header.Get("Authorization") + `"}`))
	})

	rr := Serve(handler, http.MethodPost, "/test", strings.NewReader("{}"))
	AssertStatus(t, rr, http.StatusCreated)
	var body map[string]any
	DecodeJSON(t, rr, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok=true")
	}

	req := httptest.NewRequest(http.MethodGet, "/req", nil)
	AssertStatus(t, ServeRequest(handler, req), http.StatusCreated)

	rr = ServeJSON(t, handler, http.MethodPut, "/json", map[string]string{"a": "b"}, "tok")
	DecodeJSON(t, rr, &body)
	if body["auth"] != "Bearer tok" {
		t.Fatalf("expected bearer header, got %v", body["auth"])
	}
}

func TestMemoryRunnerHelper(t *testing.T) {
	comp := SampleCompetition("eng.1", "http://feed")
	f := &teststubs.StubFetcher{Snapshots: []matches.Snapshot{SampleSnapshot("m1", 0, 0, matches.StateIn)}}
	r, ms := NewMemoryRunner([]matches.Competition{comp}, f, &teststubs.StubNotifier{})

	if _, err := r.RunCompetition(context.Background(), comp.ID); err != nil {
		t.Fatalf("unexpected run error %v", err)
	}
	if _, ok, _ := ms.LoadMatchState(context.Background(), comp, "m1"); !ok {
		t.Fatalf("expected state persisted in returned store")
	}
}

func TestServerStubs(t *testing.T) {
	s := &StubScheduler{Err: errors.New("stop")}
	s.Start(context.Background())
	if err := s.Stop(context.Background()); !errors.Is(err, s.Err) {
		t.Fatalf("expected stop error")
	}
	if start, stop := s.Calls(); start != 1 || stop != 1 {
		t.Fatalf("unexpected call counts %d/%d", start, stop)
	}
	if s.Status() != s.StatusVal {
		t.Fatalf("expected status passthrough")
	}
	if rep := s.Report(); rep.Status != s.StatusVal || rep.Competitions == nil {
		t.Fatalf("expected report to wrap status, got %+v", rep)
	}

	sh := &StubHTTPServer{ListenErr: errors.New("boom"), ShutdownErr: errors.New("down")}
	sh.HandlerVal = http.NewServeMux()
	_ = sh.ListenAndServe()
	_ = sh.Shutdown(context.Background())
	if sh.ListenCalls != 1 || sh.ShutdownCalls != 1 || sh.Handler() == nil {
		t.Fatalf("expected listen/shutdown calls, got %+v", sh)
	}

	b := &BlockingHTTPServer{Unblock: make(chan struct{}), HandlerVal: http.NewServeMux()}
	done := make(chan error, 1)
	go func() { done <- b.Shutdown(context.Background()) }()
	close(b.Unblock)
	if err := <-done; err != nil {
		t.Fatalf("expected nil shutdown err, got %v", err)
	}

	e := &ErrHTTPServer{}
	if err := e.ListenAndServe(); err == nil {
		t.Fatalf("expected listen failure")
	}
	c := &CloseableHTTPServer{}
	if err := c.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected ErrServerClosed, got %v", err)
	}
}

func TestLoggerAndMetricsHelpers(t *testing.T) {
	logger, buf := NewBufferLogger()
	logger.Info("hello", "k", "v")
	if buf.Len() == 0 {
		t.Fatalf("expected buffered log output")
	}
	rec, shutdown := NewRecorderWithShutdown()
	if rec == nil || shutdown == nil {
		t.Fatalf("expected recorder and shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil shutdown error, got %v", err)
	}
}
