package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/shandysiswandi/pkitotp/internal/pkg/config"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
	"github.com/shandysiswandi/pkitotp/internal/pkg/validator"
)

// errorResponse is the flat error body: {"error": "..."}.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Handler is the application-style handler used by this router.
//
// It returns a response payload (JSON encoded as-is) or an error.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	// Config provides runtime configuration values.
	Config config.Config
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// Instrument provides tracing and metrics helpers.
	Instrument instrument.Instrumentation
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr         *httprouter.Router
	errorCodec func(ctx context.Context, w http.ResponseWriter, err error)
	encoder    func(ctx context.Context, w http.ResponseWriter, resp any)
	mws        []Middleware
}

// NewRouter builds the default application router with standard middleware.
func NewRouter(cfg Config) *Router {
	if cfg.Instrument == nil {
		cfg.Instrument = instrument.NewNoop()
	}

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Error: "Endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Error: "Method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	return &Router{
		hr:         hr,
		errorCodec: flatErrorCodec,
		encoder:    flatEncoder,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareIP(cfg.Config),
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Instrument),
			middlewareMaintenance(cfg.Config),
		},
	}
}

// flatErrorCodec writes {"error": msg}. Only *goerror.Error messages reach the
// client; anything else is reported as an internal error.
func flatErrorCodec(ctx context.Context, w http.ResponseWriter, err error) {
	gerr, ok := goerror.As(err)
	if !ok {
		slog.ErrorContext(ctx, "unstructured error reached the router", "error", err)
		writeJSON(w, errorResponse{Error: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	if gerr.Type() != goerror.TypeServer {
		slog.DebugContext(ctx, "request rejected", "error", gerr)
	}

	resp := errorResponse{Error: gerr.Msg()}
	if resp.Error == "" {
		resp.Error = http.StatusText(gerr.StatusCode())
	}

	var errValidate validator.V10ValidationError
	if errors.As(err, &errValidate) {
		resp.Fields = errValidate.Values()
	} else if len(gerr.Fields()) > 0 {
		resp.Fields = gerr.Fields()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

// flatEncoder writes resp as the whole body. A StatusCode() method on resp
// overrides 200.
func flatEncoder(_ context.Context, w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}

	if code == http.StatusNoContent || resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, resp, code)
}

// Use appends middleware applied to every route registered afterwards.
func (r *Router) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

// GET registers a GET endpoint using the application Handler signature.
func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

// POST registers a POST endpoint using the application Handler signature.
func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

func (r *Router) chain(extra []Middleware) []Middleware {
	mws := make([]Middleware, 0, len(r.mws)+len(extra))
	mws = append(mws, r.mws...)

	return append(mws, extra...)
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, re *http.Request) {
		resp, err := h(&Request{Request: re, writer: w})
		if err != nil {
			if setter, ok := w.(interface{ SetError(error) }); ok {
				setter.SetError(err)
			}
			r.errorCodec(re.Context(), w, err)
			return
		}
		r.encoder(re.Context(), w, resp)
	}), r.chain(mws)...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("server: failed to encode data to json", "error", err)
	}
}
