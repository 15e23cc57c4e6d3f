package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func idemOverMiniredis(t *testing.T) Idem {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdemRejectsReplayedKey(t *testing.T) {
	wrapped := idemOverMiniredis(t).Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/redeem", nil)
	req.Header.Set("Idempotency-Key", "order-42")

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery should reach the handler, got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	wrapped.ServeHTTP(replay, req.Clone(req.Context()))
	if replay.Code != http.StatusConflict {
		t.Fatalf("retried delivery should get 409, got %d", replay.Code)
	}
	if body := replay.Body.String(); !strings.Contains(body, "IDEMPOTENT_REPLAY") {
		t.Fatalf("replay should carry the canonical error code, got %s", body)
	}
}

func TestIdemKeysAreScopedPerRoute(t *testing.T) {
	idem := idemOverMiniredis(t)
	wrapped := idem.Middleware(okHandler())

	redeem := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/redeem", nil)
	redeem.Header.Set("Idempotency-Key", "shared-key")
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, redeem)
	if rr.Code != http.StatusOK {
		t.Fatalf("redeem delivery: %d", rr.Code)
	}

	// the same client key on a different route is a different request
	other := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/resolve", nil)
	other.Header.Set("Idempotency-Key", "shared-key")
	rr2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rr2, other)
	if rr2.Code != http.StatusOK {
		t.Fatalf("same key on another route must not collide, got %d", rr2.Code)
	}
}

func TestIdemWithoutKeyPassesThrough(t *testing.T) {
	wrapped := idemOverMiniredis(t).Middleware(okHandler())
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/coupons/redeem", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("missing header should bypass the guard, got %d", rr.Code)
	}
}
