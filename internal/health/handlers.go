package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/toko-promo/internal/common"
)

// notReady flips during shutdown so load balancers drain the instance before
// the listener closes. Zero value means serving.
var notReady atomic.Bool

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	notReady.Store(!v)
}

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Status is the readiness report. Every discount path needs Postgres and
// the coupon paths additionally lean on Redis for locking and throttling,
// so both are probed.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the shutdown gate and dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if notReady.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	report := Status{Status: "ok", Checks: map[string]string{"db": "ok", "redis": "ok"}}
	if err := h.Checker.PingDB(ctx, h.dbTimeout()); err != nil {
		report.Checks["db"] = err.Error()
	}
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		report.Checks["redis"] = err.Error()
	}
	code := http.StatusOK
	for _, check := range report.Checks {
		if check != "ok" {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	common.JSON(w, code, report)
}

func (h Handler) dbTimeout() time.Duration {
	if h.DBTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DBTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
