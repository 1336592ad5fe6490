package router

import (
	"bytes"
	"net/http"
)

// bodyLogLimit caps how much of a request or response body is logged.
const bodyLogLimit = 8 << 10

// responseRecorder wraps the writer handed to endpoints so the observability
// middleware can see status, size, the first bodyLogLimit bytes, and the
// error the endpoint returned.
type responseRecorder struct {
	http.ResponseWriter

	status    int
	written   int
	head      bytes.Buffer
	truncated bool
	err       error
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(p []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}

	room := bodyLogLimit - rr.head.Len()
	switch {
	case room >= len(p):
		rr.head.Write(p)
	case room > 0:
		rr.head.Write(p[:room])
		rr.truncated = true
	default:
		rr.truncated = rr.truncated || len(p) > 0
	}

	n, err := rr.ResponseWriter.Write(p)
	rr.written += n

	return n, err
}

// SetError is called by the endpoint adapter with the handler error.
func (rr *responseRecorder) SetError(err error) { rr.err = err }

func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rr *responseRecorder) code() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}
