package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMiddlewareThrottlesRepeatCaller(t *testing.T) {
	sw, _ := windowOverMiniredis(t)
	guard := Handler{
		Window: sw,
		Key:    func(r *http.Request) string { return r.RemoteAddr },
		Per:    time.Minute,
		Max:    1,
	}

	wrapped := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", nil)

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusOK {
		t.Fatalf("first validation attempt should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt within the window should get 429, got %d", second.Code)
	}
	if second.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("remaining header: %q", second.Header().Get("X-RateLimit-Remaining"))
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("throttled response should carry Retry-After")
	}
}

func TestMiddlewareFailsOpenWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	var seen error
	guard := Handler{
		Window:  SlidingWindow{Redis: client},
		Key:     func(r *http.Request) string { return r.RemoteAddr },
		Per:     time.Minute,
		Max:     1,
		OnError: func(err error) { seen = err },
	}

	wrapped := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("limiter failure must not block the request, got %d", rr.Code)
	}
	if seen == nil {
		t.Fatal("expected the redis failure to reach OnError")
	}
}

func TestMiddlewareWithoutKeyIsPassthrough(t *testing.T) {
	wrapped := Handler{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("missing key func should disable the throttle, got %d", rr.Code)
	}
}
