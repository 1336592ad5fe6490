package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
)

const instrumentationScope = "pkitotp/router"

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// headerFields flattens headers into a map the masking log handler walks,
// so secrets such as Authorization never reach the output.
func headerFields(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// bodyField decodes JSON bodies for structured, masked logging. Other
// content is only described.
func bodyField(body []byte, truncated bool) any {
	if len(body) == 0 {
		return nil
	}

	var v any
	if truncated || json.Unmarshal(body, &v) != nil {
		if utf8.Valid(body) {
			v = "<non-json body omitted>"
		} else {
			v = "<binary body omitted>"
		}
	}

	if truncated {
		return map[string]any{"body": v, "truncated": true}
	}
	return v
}

// snapshotBody reads at most bodyLogLimit bytes for logging and puts them
// back in front of the remaining body.
func snapshotBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	//nolint:errcheck // logging only; the handler sees the same error
	head, _ := io.ReadAll(io.LimitReader(r.Body, bodyLogLimit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	if len(head) > bodyLogLimit {
		return head[:bodyLogLimit], true
	}
	return head, false
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var m httpMetrics
	var err error

	if m.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		slog.Error("http request counter unavailable", "error", err)
	}
	if m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms")); err != nil {
		slog.Error("http duration histogram unavailable", "error", err)
	}

	return m
}

func (m httpMetrics) record(r *http.Request, elapsed time.Duration, attrs []attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	if m.requests != nil {
		m.requests.Add(r.Context(), 1, opt)
	}
	if m.duration != nil {
		m.duration.Record(r.Context(), float64(elapsed.Microseconds())/1000, opt)
	}
}

func finishSpan(span trace.Span, status int, err error) {
	if err != nil {
		span.RecordError(err)
	}
	if status < http.StatusInternalServerError {
		span.SetStatus(codes.Ok, "")
		return
	}

	desc := http.StatusText(status)
	if err != nil {
		desc = err.Error()
	}
	span.SetStatus(codes.Error, desc)
}

// middlewareObservability opens a server span per request, logs the request
// and response, and records request count and latency.
func middlewareObservability(ins instrument.Instrumentation) Middleware {
	tracer := ins.Tracer(instrumentationScope)
	metrics := newHTTPMetrics(ins.Meter(instrumentationScope))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)
			base := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
			}

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(base...))
			defer span.End()
			r = r.WithContext(ctx)

			reqBody, reqTruncated := snapshotBody(r)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"client_ip", ClientIP(r),
				"headers", headerFields(r.Header),
				"body", bodyField(reqBody, reqTruncated),
			)

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.code()
			elapsed := time.Since(start)
			attrs := append(base, semconv.HTTPResponseStatusCodeKey.Int(status))

			finishSpan(span, status, rec.err)
			span.SetAttributes(append(attrs, attribute.Int("http.response_content_length", rec.written))...)
			metrics.record(r, elapsed, attrs)

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.written,
				"latency_ms", elapsed.Milliseconds(),
				"body", bodyField(rec.head.Bytes(), rec.truncated),
			)
		})
	}
}
