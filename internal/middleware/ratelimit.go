package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/recipex/recipex/internal/cache"
)

// RateLimitConfig wires the search limiter: a logger for limit events,
// the Redis-backed bucket store, and the per-client refill settings.
type RateLimitConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache

	Enabled bool
	RPS     int // refill rate, tokens per second
	Burst   int // bucket capacity above the steady rate
}

// RateLimitSearch returns middleware that rate limits search traffic per
// client IP. Requests without a search parameter pass through untouched:
// plain listings are served from local storage, while every search also
// fans out to the external API.
func RateLimitSearch(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Cache == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !r.URL.Query().Has("search") {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Cache.CheckSearchRateLimit(r.Context(), ip, cfg.RPS, cfg.Burst)
			if err != nil {
				// Redis trouble must not take search down; let the
				// request through.
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.RPS, result.Remaining, result.ResetAt)

			if !result.Allowed {
				retrySec := retryAfterSeconds(result.RetryAfter)
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retrySec),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retrySec))
				writeRateLimitError(w, retrySec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, since a
// Retry-After of 0 would invite an immediate retry.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	sec := int((d + time.Second - 1) / time.Second)
	if sec < 1 {
		return 1
	}
	return sec
}

// setRateLimitHeaders advertises the bucket state on every limited
// response so well-behaved clients can pace themselves.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError emits the shared error envelope with a 429 status.
func writeRateLimitError(w http.ResponseWriter, retrySec int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	msg := fmt.Sprintf(`{"error":true,"message":"Rate limit exceeded. Retry after %d seconds.","error_code":"rate_limit_exceeded","status_code":429}`,
		retrySec)
	_, _ = w.Write([]byte(msg))
}

// clientIP extracts the client IP for bucketing. RealIP normally resolves
// proxy headers before this runs; the fallbacks cover a chain without it.
// The port is dropped so reconnects land in the same bucket.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
