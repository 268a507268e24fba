package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// KeyFunc extracts the limiter key of a request. An empty key skips limiting.
type KeyFunc func(*http.Request) string

// Middleware enforces limiter per key. Limiter errors let the request through.
func Middleware(limiter RateLimiter, keyFn KeyFunc, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable, allowing request",
					zap.String("key", key),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				retryAfter := max(int(math.Ceil(time.Until(info.ResetAt).Seconds())), 1)
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
