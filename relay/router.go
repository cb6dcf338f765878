package relay

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type HandlerFunc func(*Ctx)
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Router dispatches on exact paths. The relay surface has no path parameters,
// so a flat table with per-path method sets is all that is needed; it still
// knows enough to answer 405 with a correct Allow header.
type Router struct {
	routes     map[string]map[string]HandlerFunc
	middleware []MiddlewareFunc
	logger     *zerolog.Logger
}

func NewRouter(logger *zerolog.Logger) *Router {
	return &Router{
		routes: make(map[string]map[string]HandlerFunc),
		logger: logger,
	}
}

// Use adds a global middleware to the router.
func (r *Router) Use(mw MiddlewareFunc) {
	r.middleware = append(r.middleware, mw)
}

func (r *Router) GET(path string, handler HandlerFunc) {
	r.addRoute(http.MethodGet, path, handler)
}

func (r *Router) POST(path string, handler HandlerFunc) {
	r.addRoute(http.MethodPost, path, handler)
}

func (r *Router) addRoute(method, path string, handler HandlerFunc) {
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]HandlerFunc)
	}
	if _, exists := r.routes[path][method]; exists {
		panic(fmt.Sprintf("route already defined: %s %s", method, path))
	}
	r.routes[path][method] = handler
}

// allowedMethods returns the Allow header value for a path.
func (r *Router) allowedMethods(path string) string {
	methods := make([]string, 0, len(r.routes[path]))
	for m := range r.routes[path] {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// applyMiddleware wraps the handler with middleware functions.
func applyMiddleware(handler HandlerFunc, middleware []MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := &Ctx{
		ResponseWriter: NewResponseWriterWrapper(w),
		Request:        req,
		StartTime:      time.Now(),
		UUID:           uuid.New().String(),
		Logger:         r.logger,
	}

	byMethod, ok := r.routes[req.URL.Path]
	if !ok {
		handler := applyMiddleware(func(c *Ctx) {
			c.SendError(Newf(ErrNotFound, "no route for %s", c.Request.URL.Path))
		}, r.middleware)
		handler(ctx)
		return
	}

	ctx.Route = req.URL.Path

	handler, ok := byMethod[req.Method]
	if !ok {
		allow := r.allowedMethods(req.URL.Path)
		handler := applyMiddleware(func(c *Ctx) {
			c.SetHeader("Allow", allow)
			c.SendError(Newf(ErrMethodNotAllowed, "method %s not allowed", c.Request.Method))
		}, r.middleware)
		handler(ctx)
		return
	}

	applyMiddleware(handler, r.middleware)(ctx)
}
