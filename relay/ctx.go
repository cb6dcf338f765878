package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Ctx carries the per-request state through the middleware chain and into the
// handler. Nothing in it outlives the request.
type Ctx struct {
	ResponseWriter *ResponseWriterWrapper
	Request        *http.Request
	StartTime      time.Time
	UUID           string
	Logger         *zerolog.Logger

	// Route is the registered path that matched, or "" for unknown paths.
	// Metrics label by it rather than the raw URL path to keep cardinality
	// bounded.
	Route string
}

func (c *Ctx) SetHeader(key, value string) {
	c.ResponseWriter.Header().Set(key, value)
}

func (c *Ctx) GetHeader(key string) string {
	return c.Request.Header.Get(key)
}

func (c *Ctx) SetStatus(code int) {
	c.ResponseWriter.WriteHeader(code)
}

func (c *Ctx) Context() context.Context {
	return c.Request.Context()
}

// Elapsed returns the time spent handling the request so far.
func (c *Ctx) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

func (c *Ctx) SendJSON(statusCode int, v interface{}) {
	c.SetHeader("Content-Type", "application/json")
	response, err := sonic.Marshal(v)
	if err != nil {
		c.SetStatus(http.StatusInternalServerError)
		c.ResponseWriter.Write([]byte(fmt.Sprintf(`"error encoding response: %s"`, err)))
		return
	}
	c.SetStatus(statusCode)
	c.ResponseWriter.Write(response)
}

// SendError writes the JSON error payload for err. Relay errors keep their
// code, status, and extra fields; anything else becomes a 500.
func (c *Ctx) SendError(err error) {
	var relayErr *Error
	if !errors.As(err, &relayErr) {
		relayErr = Wrap(err, ErrInternal, "")
	}

	LogError(c.Logger, relayErr, c.UUID)

	payload := map[string]interface{}{
		"ok":    false,
		"error": relayErr.Message,
		"code":  relayErr.Code,
	}
	if relayErr.Original != nil {
		payload["detail"] = relayErr.Original.Error()
	}
	for k, v := range relayErr.Fields {
		payload[k] = v
	}
	c.SendJSON(relayErr.StatusCode, payload)
}
