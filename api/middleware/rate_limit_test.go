package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func userRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	return req.WithContext(WithUserID(req.Context(), userID))
}

func TestUserRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	policy := RateLimitPolicy{Name: "checkout", Limit: 2, Window: time.Minute}
	handler := UserRateLimit(policy, limiter, nil)(okHandler())

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, userRequest("u1"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, userRequest("u1"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", resp.Header().Get("Retry-After"))
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, userRequest("u2"))
	if resp.Code != http.StatusOK {
		t.Fatalf("other users keep their own window, got %d", resp.Code)
	}
	if _, ok := limiter.counts["checkout:u1"]; !ok {
		t.Fatalf("expected scope keyed by policy and user, got %v", limiter.counts)
	}
}

func TestUserRateLimitDependencyFailure(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := UserRateLimit(RateLimitPolicy{Name: "checkout", Limit: 1, Window: time.Minute}, limiter, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, userRequest("u1"))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestUserRateLimitDisabled(t *testing.T) {
	handler := UserRateLimit(RateLimitPolicy{Name: "checkout"}, &fakeLimiter{err: errors.New("unused")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, userRequest("u1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("disabled policy should pass through, got %d", resp.Code)
	}
}
