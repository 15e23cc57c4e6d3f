package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem guards the redeem endpoint against retried deliveries. Order services
// retry on timeouts; the storage claim is already idempotent per order, but
// answering the retry with 409 up front keeps it from re-running validation
// and burning a rate-limit slot.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// redisKey scopes the client's key to the route so the same Idempotency-Key
// sent to two endpoints never collides.
func (i Idem) redisKey(r *http.Request, clientKey string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "\n" + clientKey))
	return "promo:idem:" + hex.EncodeToString(sum[:])
}

// Middleware short-circuits requests replaying a seen Idempotency-Key.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientKey := r.Header.Get("Idempotency-Key")
		if clientKey == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := i.redisKey(r, clientKey)
		fresh, err := i.R.SetNX(r.Context(), key, "seen", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !fresh {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the key alive even if the handler panicked mid-flight
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
