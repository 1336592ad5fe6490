package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/config"
)

// clientIPHeaders are consulted in order; the first parseable address wins.
// Only the left-most X-Forwarded-For entry is used.
var clientIPHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

// trustedProxies lists the peers allowed to report a client address.
type trustedProxies []netip.Prefix

// parseTrustedProxies accepts addresses and CIDR ranges. Invalid entries
// are logged and skipped.
func parseTrustedProxies(entries []string) trustedProxies {
	var out trustedProxies
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", "entry", e)
	}
	return out
}

func (tp trustedProxies) contains(remoteAddr string) bool {
	if len(tp) == 0 {
		return false
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range tp {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// middlewareIP replaces r.RemoteAddr with the address reported by a proxy
// header, but only when the connecting peer is listed in
// app.server.trusted_proxies. ClientIP and the rate limiter read it from
// there, so an untrusted client cannot pick its own rate limit key.
func middlewareIP(cfg config.Config) Middleware {
	var trusted trustedProxies
	if cfg != nil {
		trusted = parseTrustedProxies(cfg.GetArray("app.server.trusted_proxies"))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trusted.contains(r.RemoteAddr) {
				if ip := forwardedIP(r.Header); ip != "" {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedIP(h http.Header) string {
	for _, name := range clientIPHeaders {
		v, _, _ := strings.Cut(h.Get(name), ",")
		v = strings.TrimSpace(v)
		if v != "" && net.ParseIP(v) != nil {
			return v
		}
	}

	return ""
}
