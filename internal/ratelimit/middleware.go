package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Handler throttles coupon validation attempts per caller. The limiter is
// advisory: when Redis is unreachable the request proceeds and OnError gets
// the failure, since dropping legitimate checkouts is worse than briefly
// admitting a code guesser.
type Handler struct {
	Window  SlidingWindow
	Key     func(*http.Request) string
	Per     time.Duration
	Max     int
	OnError func(error)
}

// Middleware wraps next with the throttle.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Window.Take(r.Context(), h.Key(r), h.Per, h.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := h.Max
		if limit < 0 {
			limit = 0
		}
		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := int(time.Until(d.ResetAt).Seconds())
			if retry < 0 {
				retry = 0
			}
			hdr.Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "too many validation attempts", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
