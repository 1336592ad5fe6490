package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the id echoed back on every response.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted from proxies that only set this one.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// incomingCID returns the first usable id from the request headers.
// Values with line breaks are dropped; long values are truncated.
func incomingCID(h http.Header) string {
	for _, name := range []string{HeaderCorrelationID, HeaderRequestID} {
		v := h.Get(name)
		if strings.ContainsAny(v, "\r\n") {
			continue
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if len(v) > maxCorrelationIDLen {
			v = v[:maxCorrelationIDLen]
		}
		return v
	}

	return ""
}

func middlewareCorrelationID(ids uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := incomingCID(r.Header)
			if cid == "" && ids != nil {
				cid = ids.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
