// Package goerror carries a client-safe message and an HTTP mapping next to
// the underlying cause, which only ever reaches the logs.
package goerror

import (
	"errors"
	"log/slog"
	"net/http"
)

// Type is the broad bucket an error falls into.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeServer:
		return "server"
	case TypeBusiness:
		return "business"
	case TypeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Code selects the HTTP status of an Error.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	// CodeConflict is used for an idempotency key still in flight.
	CodeConflict
	CodeTooManyRequest
	CodeUnavailable
)

var codeStatus = map[Code]int{
	CodeInternal:       http.StatusInternalServerError,
	CodeInvalidFormat:  http.StatusBadRequest,
	CodeInvalidInput:   http.StatusUnprocessableEntity,
	CodeNotFound:       http.StatusNotFound,
	CodeConflict:       http.StatusConflict,
	CodeTooManyRequest: http.StatusTooManyRequests,
	CodeUnavailable:    http.StatusServiceUnavailable,
}

func (c Code) String() string {
	if s, ok := codeStatus[c]; ok {
		return http.StatusText(s)
	}
	return http.StatusText(http.StatusInternalServerError)
}

// Error is the structured error returned by use cases. Error() reports the
// cause for logs; Msg is what a client may see.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	default:
		return e.errType.String() + " error"
	}
}

// LogValue groups type, code, message and cause for slog.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.errType.String()),
		slog.Int("status", e.StatusCode()),
		slog.String("msg", e.msg),
	}
	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}
	return slog.GroupValue(attrs...)
}

func (e *Error) Msg() string                { return e.msg }
func (e *Error) Type() Type                 { return e.errType }
func (e *Error) Code() Code                 { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) Unwrap() error              { return e.err }

// StatusCode maps Code to an HTTP status; unknown codes are 500.
func (e *Error) StatusCode() int {
	if s, ok := codeStatus[e.code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// As extracts *Error from err's chain.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// NewServer wraps err with the generic "Internal server error" message.
func NewServer(err error) error {
	return NewServerMsg(err, "Internal server error")
}

// NewServerMsg wraps err with a fixed client message, e.g. "Decryption
// failed".
func NewServerMsg(err error, msg string) error {
	return &Error{err: err, msg: msg, errType: TypeServer, code: CodeInternal}
}

// NewBusiness reports a rule violation with no underlying cause.
func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewInvalidInput reports a 422. Either err is a validator error, or kv
// holds field/message pairs; an odd kv degrades to NewInvalidFormat.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
	}

	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat reports a 400 with msg, or "Invalid request body".
func NewInvalidFormat(msg ...string) error {
	m := "Invalid request body"
	if len(msg) > 0 {
		m = msg[0]
	}

	return &Error{msg: m, errType: TypeValidation, code: CodeInvalidFormat}
}
