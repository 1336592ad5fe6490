package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
)

// MaxBodyBytes caps how much of a request body DecodeBody accepts.
const MaxBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	// Request is the underlying http.Request.
	*http.Request

	writer http.ResponseWriter
}

// GetHeader returns the trimmed header value for key.
func (r *Request) GetHeader(key string) string {
	return strings.TrimSpace(r.Header.Get(key))
}

// ClientIP returns the resolved client address.
func (r *Request) ClientIP() string {
	return ClientIP(r.Request)
}

// DecodeBody decodes a single JSON object into dst. Unknown fields are
// ignored; trailing data and bodies over MaxBodyBytes are rejected.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}

	body := io.Reader(r.Body)
	if r.writer != nil {
		body = http.MaxBytesReader(r.writer, r.Body, MaxBodyBytes)
	} else {
		body = io.LimitReader(r.Body, MaxBodyBytes)
	}

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
