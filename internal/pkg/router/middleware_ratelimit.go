package router

import (
	"net"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/ratelimit"
)

// RateLimit rejects requests over the per-client budget with 429. Clients are
// keyed by the address resolved by the IP middleware.
func RateLimit(limiter *ratelimit.Limiter, clk clock.Clocker) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientIP(r), clk.Now()) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				writeJSON(w, errorResponse{Error: "Too many requests"}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
