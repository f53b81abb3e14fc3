package rate

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWrapHTTPAllowsWithinBudget(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := WrapHTTP(Provider("test").MaxRequestsPer(Minute, 10), srv.Client())

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}
	if calls != 3 {
		t.Fatalf("server saw %d calls, want 3", calls)
	}
}

func TestWrapHTTPFailsClosedWithoutLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer srv.Close()

	client := WrapHTTP(Provider("test"), srv.Client())

	_, err := client.Get(srv.URL)
	var rlErr RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.Reason != "disabled" {
		t.Fatalf("reason = %q, want disabled", rlErr.Reason)
	}
}

func TestWrapHTTPDeniesWhenBudgetExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Limit-minute", "10")
		w.Header().Set("X-RateLimit-Remaining-minute", "0")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	decl := Provider("test").
		MaxRequestsPer(Minute, 10).
		ReadHeaders(StandardHeaders())
	client := WrapHTTP(decl, srv.Client())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()

	_, err = client.Get(srv.URL)
	var rlErr RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.Provider != "test" || rlErr.Reason != "budget" {
		t.Fatalf("unexpected error details: %+v", rlErr)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
}

func TestWrapHTTPServesCachedWhenLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Remaining-minute", "0")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	decl := Provider("test").
		MaxRequestsPer(Minute, 10).
		CacheFor(time.Minute).
		ReadHeaders(StandardHeaders())
	client := WrapHTTP(decl, srv.Client())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()

	resp, err = client.Get(srv.URL)
	if err != nil {
		t.Fatalf("cached request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "payload" {
		t.Fatalf("cached body = %q, want payload", body)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
}

func TestWrapHTTPNeverCachesWrites(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Remaining-minute", "0")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	decl := Provider("test").
		MaxRequestsPer(Minute, 10).
		CacheFor(time.Minute).
		ReadHeaders(StandardHeaders())
	client := WrapHTTP(decl, srv.Client())

	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"param":"power"}`))
	if err != nil {
		t.Fatalf("first post: %v", err)
	}
	resp.Body.Close()

	_, err = client.Post(srv.URL, "application/json", strings.NewReader(`{"param":"power"}`))
	var rlErr RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError for blocked write, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
}

func TestWrapHTTPRetryAfterCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	decl := Provider("test").
		MaxRequestsPer(Minute, 10).
		ReadHeaders(StandardHeaders())
	client := WrapHTTP(decl, srv.Client())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()

	_, err = client.Get(srv.URL)
	var rlErr RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.Reason != "cooldown" {
		t.Fatalf("reason = %q, want cooldown", rlErr.Reason)
	}
	if !rlErr.RetryAt.After(time.Now()) {
		t.Fatalf("retry at %v should be in the future", rlErr.RetryAt)
	}
}
