package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"submit": {RequestsPerSecond: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("submit")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	now = now.Add(time.Second)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected bucket to refill, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutesAndClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"submit": {RequestsPerSecond: 1, Burst: 1},
		"read":   {RequestsPerSecond: 1, Burst: 1},
	}, nil)
	submit := limiter.Middleware("submit")(okHandler())
	read := limiter.Middleware("read")(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	first.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	for name, h := range map[string]http.Handler{"submit": submit, "read": read} {
		res := httptest.NewRecorder()
		h.ServeHTTP(res, first)
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected first request to succeed, got %d", name, res.Code)
		}
	}

	other := httptest.NewRequest(http.MethodPost, "/v1/transactions", nil)
	other.Header.Set("X-Real-IP", "10.0.0.9")
	res := httptest.NewRecorder()
	submit.ServeHTTP(res, other)
	if res.Code != http.StatusOK {
		t.Fatalf("expected other client to have its own bucket, got %d", res.Code)
	}
}

func TestRateLimiterDisabledAndSweep(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"off": {}, "on": {RequestsPerSecond: 5, Burst: 5}}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	off := limiter.Middleware("off")(okHandler())
	for i := 0; i < 10; i++ {
		res := httptest.NewRecorder()
		off.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("disabled limit must not block, got %d", res.Code)
		}
	}

	limiter.Middleware("on")(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if remaining := limiter.Sweep(); remaining != 1 {
		t.Fatalf("expected one tracked client, got %d", remaining)
	}
	now = now.Add(10 * time.Minute)
	if remaining := limiter.Sweep(); remaining != 0 {
		t.Fatalf("expected idle client to be swept, got %d", remaining)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if seen != "abc-123" || res.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\n")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if seen == "" || seen == "bad id\n" || len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}
