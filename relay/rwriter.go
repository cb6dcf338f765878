package relay

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// ResponseWriterWrapper tracks the status code and byte count of a response
// so the logging middleware and metrics can report on streamed transfers
// without buffering them.
type ResponseWriterWrapper struct {
	http.ResponseWriter
	Status        int
	BytesWritten  int64
	headerWritten bool
}

func NewResponseWriterWrapper(w http.ResponseWriter) *ResponseWriterWrapper {
	return &ResponseWriterWrapper{
		ResponseWriter: w,
		Status:         http.StatusOK,
	}
}

func (w *ResponseWriterWrapper) WriteHeader(statusCode int) {
	if w.headerWritten {
		return
	}
	w.headerWritten = true
	w.Status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *ResponseWriterWrapper) Write(data []byte) (int, error) {
	w.headerWritten = true
	size, err := w.ResponseWriter.Write(data)
	w.BytesWritten += int64(size)
	return size, err
}

// HeaderWritten reports whether the status line has gone out. Once it has,
// errors can no longer be reported as a JSON payload.
func (w *ResponseWriterWrapper) HeaderWritten() bool {
	return w.headerWritten
}

func (w *ResponseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, errors.New("ResponseWriter does not implement http.Hijacker")
}

func (w *ResponseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
