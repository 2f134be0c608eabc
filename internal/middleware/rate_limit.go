package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

// Limiter counts one request for a client key
type Limiter interface {
	Allow(ctx context.Context, client string) (*domain.RateLimitInfo, error)
}

// RateLimit rejects clients over their budget with 429. Limiter failures
// let the request through. Run it after chi's RealIP.
func RateLimit(limiter Limiter, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.WithError(err).Warn("Rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if info.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
				remaining := int64(info.Limit) - info.RequestCount
				if remaining < 0 {
					remaining = 0
				}
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			}

			if !info.IsAllowed {
				retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteError(w, r, errors.NewRateLimitedError("Too many ballots from this network, try again later", map[string]interface{}{
					"retry_after_seconds": retryAfter,
				}), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
