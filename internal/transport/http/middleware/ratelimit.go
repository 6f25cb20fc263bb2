package middleware

import (
	"net/http"
	"strconv"

	"github.com/vedran77/matrimony/internal/ratelimit"
	"github.com/vedran77/matrimony/pkg/logger"
)

// RateLimit throttles an authenticated route per user. It must run after
// Auth. A limiter failure lets the request through.
func RateLimit(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + strconv.FormatInt(GetUserID(r.Context()), 10)
			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error().Err(err).Str("scope", scope).Msg("rate limiter failed")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				logger.Warn().
					Str("key", key).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"Too many requests. Please slow down."}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
