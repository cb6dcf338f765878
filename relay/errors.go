package relay

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrorCode identifies an error category on both the server and client side.
type ErrorCode string

const (
	ErrUnknown          ErrorCode = "err_unknown_error"
	ErrInternal         ErrorCode = "err_internal_error"
	ErrInvalidRequest   ErrorCode = "err_invalid_request"
	ErrNotFound         ErrorCode = "err_not_found"
	ErrMethodNotAllowed ErrorCode = "err_method_not_allowed"

	// Relay-specific errors
	ErrUnsupportedType ErrorCode = "err_unsupported_type"
	ErrUpstream        ErrorCode = "err_upstream"
	ErrStream          ErrorCode = "err_stream"
)

// Error is the standardized error type carrying a client-facing code, an HTTP
// status, and captured caller information for debugging.
type Error struct {
	Original   error
	Code       ErrorCode
	StatusCode int
	Message    string

	// Extra fields merged into the JSON error payload (e.g. upstream status).
	Fields map[string]interface{}

	file     string
	line     int
	function string
}

// APIErrorDef maps an error code to its HTTP status and default message.
type APIErrorDef struct {
	Message    string
	StatusCode int
}

var PredefinedErrors = map[ErrorCode]APIErrorDef{
	ErrUnknown:          {"Unknown error", http.StatusInternalServerError},
	ErrInternal:         {"Internal error", http.StatusInternalServerError},
	ErrInvalidRequest:   {"Invalid request", http.StatusBadRequest},
	ErrNotFound:         {"Not found", http.StatusNotFound},
	ErrMethodNotAllowed: {"Method not allowed", http.StatusMethodNotAllowed},
	ErrUnsupportedType:  {"Unsupported content type", http.StatusUnsupportedMediaType},
	ErrUpstream:         {"Upstream fetch failed", http.StatusBadGateway},
	ErrStream:           {"Stream failed", http.StatusInternalServerError},
}

func (e *Error) Error() string {
	base := fmt.Sprintf("[relay:%s] %s", e.Code, e.Message)
	if e.Original != nil {
		return fmt.Sprintf("%s: %v", base, e.Original)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Original
}

// WithField attaches an extra field to the JSON error payload.
func (e *Error) WithField(key string, value interface{}) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

func New(code ErrorCode, msg string) *Error {
	def, ok := PredefinedErrors[code]
	if !ok {
		def = PredefinedErrors[ErrUnknown]
	}
	if msg == "" {
		msg = def.Message
	}

	err := &Error{
		Code:       code,
		StatusCode: def.StatusCode,
		Message:    msg,
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		err.file = file
		err.line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			err.function = fn.Name()
		}
	}
	return err
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, msg string) *Error {
	if err == nil {
		return nil
	}

	if relayErr, ok := err.(*Error); ok {
		if code != "" {
			relayErr.Code = code
			if def, ok := PredefinedErrors[code]; ok {
				relayErr.StatusCode = def.StatusCode
			}
		}
		if msg != "" {
			relayErr.Message = msg
		}
		return relayErr
	}

	relayErr := New(code, msg)
	relayErr.Original = err
	if pc, file, line, ok := runtime.Caller(1); ok {
		relayErr.file = file
		relayErr.line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			relayErr.function = fn.Name()
		}
	}
	return relayErr
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is reports whether err carries the given relay error code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Code == code
	}
	return false
}

// LogError logs an error with its captured context.
func LogError(logger *zerolog.Logger, err error, requestID string) {
	if err == nil || logger == nil {
		return
	}

	event := logger.Error().Err(err)
	if requestID != "" {
		event = event.Str("request_id", requestID)
	}

	var relayErr *Error
	if errors.As(err, &relayErr) {
		event = event.
			Str("error_code", string(relayErr.Code)).
			Int("status_code", relayErr.StatusCode).
			Str("file", relayErr.file).
			Int("line", relayErr.line).
			Str("function", relayErr.function)
	}

	event.Msg("[relay] error")
}
