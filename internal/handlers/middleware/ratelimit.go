package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/render"
	applogger "github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/service/ratelimit"
)

// clientKey identifies the caller for rate limiting. The first hop of
// X-Forwarded-For when a proxy set it, otherwise the remote address
// without port
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// throttledResponse tells the client when the window opens again, the
// same reset that travels in the X-RateLimit-Reset header
type throttledResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	RetryAfter int       `json:"retry_after"`
	ResetAt    time.Time `json:"reset_at"`
}

func setLimitHeaders(w http.ResponseWriter, limit int, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// RateLimit counts requests per client address against the limiter
func RateLimit(l *ratelimit.Limiter, limit int, log logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(clientKey(r))
			setLimitHeaders(w, limit, d)

			if !d.Allowed {
				retryAfter := int(time.Until(d.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				log.Warn("request throttled",
					"error", apperrors.ErrRateLimited.Error(),
					"path", r.URL.Path,
					"client", applogger.MaskIP(clientKey(r)),
				)
				render.JSONWithStatus(w, throttledResponse{
					Error:      "rate_limited",
					Message:    "Too many requests",
					RetryAfter: retryAfter,
					ResetAt:    d.ResetAt.UTC(),
				}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitForgiving additionally refunds the slot when the request
// succeeds, only failures count against the budget. Used on login so an
// attacker probing passwords burns the budget but a legitimate user who
// logs in does not
func RateLimitForgiving(l *ratelimit.Limiter, limit int, log logger) func(http.Handler) http.Handler {
	base := RateLimit(l, limit, log)
	return func(next http.Handler) http.Handler {
		return base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lw := &logWriter{ResponseWriter: w, data: logData{responseStatus: http.StatusOK}}
			next.ServeHTTP(lw, r)

			if lw.data.responseStatus < 400 {
				l.Forgive(clientKey(r))
			}
		}))
	}
}
