package relay

import (
	"net/http"
	"runtime/debug"

	"github.com/pkg/errors"
)

// RecoveryMiddleware turns handler panics into 500 responses (or a bare
// connection drop when headers are already out). http.ErrAbortHandler is
// re-raised untouched: it is how the streaming handler aborts a connection
// mid-transfer.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx *Ctx) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				var err error
				switch v := recovered.(type) {
				case error:
					err = v
				default:
					err = errors.Errorf("%v", v)
				}
				wrapped := Wrap(err, ErrInternal, "panic recovered")

				if ctx.Logger != nil {
					ctx.Logger.Error().
						Err(wrapped).
						Str("request_id", ctx.UUID).
						Str("method", ctx.Request.Method).
						Str("path", ctx.Request.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("[relay] panic recovered")
				}

				if !ctx.ResponseWriter.HeaderWritten() {
					ctx.SendError(wrapped)
				}
			}()

			next(ctx)
		}
	}
}

// MetricsMiddleware records request counts and durations per path and status.
func MetricsMiddleware(m *Metrics) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx *Ctx) {
			if m == nil {
				next(ctx)
				return
			}
			path := ctx.Route
			if path == "" {
				path = "unmatched"
			}
			m.InFlight.Inc()
			defer func() {
				m.InFlight.Dec()
				m.ObserveRequest(path, ctx.ResponseWriter.Status, ctx.Elapsed())
			}()
			next(ctx)
		}
	}
}
