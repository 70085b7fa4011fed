package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"carelog-backend/pkg/auth"
)

// RateLimit throttles requests per client IP through the given limiter. It
// guards the login endpoint against credential guessing.
func RateLimit(limiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi's RealIP middleware has already resolved RemoteAddr.
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("ip", clientIP(r)),
					zap.String("path", r.URL.Path),
				)
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
