// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestRateLimitDisabled(t *testing.T) {
	handler := IngestRateLimit(0, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/results/test-runs", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, rec.Code)
		}
	}
}

func TestIngestRateLimitThrottles(t *testing.T) {
	handler := IngestRateLimit(2, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/results/test-runs", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429 on third request got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Fatal("expected Retry-After header")
			}
		}
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Fatalf("expected first two requests allowed, got %v", codes)
	}
}

func TestIngestRateLimitKeysPerClient(t *testing.T) {
	handler := IngestRateLimit(1, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first.RemoteAddr = "10.0.0.1:1111"
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, first)

	second := httptest.NewRequest(http.MethodPost, "/", nil)
	second.RemoteAddr = "10.0.0.2:2222"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, second)

	if rec1.Code != http.StatusCreated || rec2.Code != http.StatusCreated {
		t.Fatalf("expected distinct clients to have distinct buckets, got %d/%d", rec1.Code, rec2.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := newInMemoryRateLimiter()
	start := time.Now()

	if d := limiter.Allow("c1", 60, start); !d.Allowed {
		t.Fatal("expected first request allowed")
	}
	for i := 0; i < 59; i++ {
		limiter.Allow("c1", 60, start)
	}
	if d := limiter.Allow("c1", 60, start); d.Allowed {
		t.Fatal("expected bucket exhausted")
	}

	// One token refills per second at 60/min.
	if d := limiter.Allow("c1", 60, start.Add(1100*time.Millisecond)); !d.Allowed {
		t.Fatal("expected refill after a second")
	}
}
