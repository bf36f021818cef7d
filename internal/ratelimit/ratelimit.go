// Package ratelimit throttles registration attempts per client key.
package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Limit is the most requests a key can make in a burst or window.
	Limit     int
	Remaining int
	// RetryAfter is set when the request was refused.
	RetryAfter time.Duration
}

// Store decides whether the key may make one more request now.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type KeyFunc func(r *http.Request) string

// HeaderOrIPKey keys requests by the given header and falls back to the
// client IP. RealIP middleware is expected to have set RemoteAddr.
func HeaderOrIPKey(header string) KeyFunc {
	return func(r *http.Request) string {
		if header != "" {
			if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
				return "h:" + v
			}
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return "ip:" + host
		}
		if r.RemoteAddr != "" {
			return "ip:" + r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware refuses requests over the limit with 429. If the store fails
// the request is let through and the error logged.
func Middleware(store Store, keyFn KeyFunc, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			dec, err := store.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(dec.Remaining, 0)))
			if !dec.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec.RetryAfter)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many requests, try again later","code":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry too early.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
