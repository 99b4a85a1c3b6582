package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
	"github.com/preston-bernstein/matchday-notifier/internal/testutil"
)

func TestRequestLoggerSetsRequestIDAndLogs(t *testing.T) {
	logger, buf := testutil.NewBufferLogger()
	rec := metrics.NewRecorder()
	nextCalled := false

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if got := RequestIDFromContext(r.Context()); got != "abc-123" {
			t.Fatalf("expected incoming request id in context, got %q", got)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := testutil.ServeRequest(RequestLogger(logger, rec)(next), req)

	if !nextCalled {
		t.Fatalf("expected next handler to be called")
	}
	testutil.AssertStatus(t, rr, http.StatusTeapot)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte("status_code=418")) {
		t.Fatalf("expected completion log with status, got %s", buf.String())
	}
}

func TestRequestLoggerReplacesInvalidRequestID(t *testing.T) {
	logger, _ := testutil.NewBufferLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	rr := testutil.ServeRequest(RequestLogger(logger, nil)(next), req)

	got := rr.Header().Get("X-Request-ID")
	if got == "" || got == "bad id with spaces" {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestRequestLoggerToleratesNilLogger(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rr := testutil.Serve(RequestLogger(nil, nil)(next), http.MethodGet, "/", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRoutePatternUsesChiRoute(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Post("/competitions/{competition}/poll", func(w http.ResponseWriter, req *http.Request) {
		seen = routePattern(req)
	})

	testutil.Serve(r, http.MethodPost, "/competitions/eng.1/poll", nil)

	if seen != "/competitions/{competition}/poll" {
		t.Fatalf("expected route pattern, got %q", seen)
	}
	if got := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Fatalf("expected unmatched outside chi, got %q", got)
	}
}

func TestRequireBearer(t *testing.T) {
	logger, _ := testutil.NewBufferLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireBearer("secret", logger)(next)

	rr := testutil.Serve(guarded, http.MethodPost, "/competitions/eng.1/poll", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodPost, "/competitions/eng.1/poll", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = testutil.ServeRequest(guarded, req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestRequireBearerOpenWhenTokenEmpty(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rr := testutil.Serve(RequireBearer("", nil)(next), http.MethodPost, "/", nil)
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestResponseWriterRecordsStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rr}
	if w.status != 0 {
		t.Fatalf("expected zero status before write, got %d", w.status)
	}
	w.WriteHeader(http.StatusAccepted)
	if w.status != http.StatusAccepted {
		t.Fatalf("expected status set to 202, got %d", w.status)
	}
}
