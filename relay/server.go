// Package relay implements the image-fetching relay service: a stateless HTTP
// server that fetches a caller-named resource upstream, corroborates the
// declared content type against the payload's magic bytes, and streams the
// validated body back with corrected headers.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tolven/imgrelay/fetchkit"
)

const serviceName = "imgrelay"

// Server is the relay service. It holds no per-request state; everything a
// request needs travels in its Ctx.
type Server struct {
	cfg     Config
	log     *zerolog.Logger
	client  *http.Client
	router  *Router
	metrics *Metrics
}

// NewServer builds a relay server from an explicit configuration. The logger
// is required; pass zerolog.Nop() to silence it.
func NewServer(cfg Config, logger *zerolog.Logger) *Server {
	cfg = cfg.normalize()
	s := &Server{
		cfg: cfg,
		log: logger,
		// Per-request deadlines come from the request context, so the client
		// itself carries no timeout. Redirects are followed by default.
		client:  &http.Client{},
		metrics: NewMetrics(),
	}

	r := NewRouter(logger)
	r.Use(RecoveryMiddleware())
	r.Use(MetricsMiddleware(s.metrics))
	r.GET("/", s.handleHealth)
	r.GET("/health", s.handleHealth)
	r.GET("/image", s.handleImageGET)
	r.POST("/image", s.handleImagePOST)
	r.GET("/metrics", func(ctx *Ctx) {
		s.metrics.Handler().ServeHTTP(ctx.ResponseWriter, ctx.Request)
	})
	s.router = r
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the HTTP listener until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Msg("[relay] listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(ctx *Ctx) {
	ctx.SendJSON(http.StatusOK, map[string]interface{}{
		"ok":        true,
		"service":   serviceName,
		"endpoints": []string{"GET /image", "POST /image", "GET /health", "GET /metrics"},
		"ts":        time.Now().UnixMilli(),
	})
}

func (s *Server) handleImageGET(ctx *Ctx) {
	params, err := ParamsFromQuery(ctx.Request)
	if err != nil {
		ctx.SendError(err)
		return
	}
	s.relayImage(ctx, params)
}

func (s *Server) handleImagePOST(ctx *Ctx) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
	if err != nil {
		ctx.SendError(Wrap(err, ErrInvalidRequest, "reading request body"))
		return
	}
	params, err := ParamsFromJSON(body)
	if err != nil {
		ctx.SendError(err)
		return
	}
	s.relayImage(ctx, params)
}

// relayImage is the shared GET/POST pipeline: fetch, sniff, gate, stream.
func (s *Server) relayImage(ctx *Ctx, p FetchParams) {
	s.log.Info().
		Str("request_id", ctx.UUID).
		Str("method", ctx.Request.Method).
		Str("url", p.URL).
		Bool("allow_any", p.AllowAny).
		Msg("[relay] fetch start")

	timeout := s.cfg.clampTimeout(p.TimeoutMS)
	fetchCtx, cancel := context.WithTimeout(ctx.Context(), timeout)
	defer cancel()

	up, err := s.fetchUpstream(fetchCtx, p)
	if err != nil {
		if relayErr, ok := err.(*Error); ok {
			if status, ok := relayErr.Fields["upstreamStatus"]; ok {
				s.log.Warn().
					Str("request_id", ctx.UUID).
					Interface("upstream_status", status).
					Msg("[relay] upstream error status")
			}
		}
		s.metrics.UpstreamErrors.WithLabelValues("fetch").Inc()
		ctx.SendError(err)
		return
	}
	defer up.Close()

	if err := up.readFirstChunk(); err != nil {
		// A timeout or client disconnect firing mid-read is still a
		// fetch-stage failure, not a stream failure.
		if fetchCtx.Err() != nil {
			s.metrics.UpstreamErrors.WithLabelValues("fetch").Inc()
			ctx.SendError(Wrap(err, ErrUpstream, "upstream fetch failed"))
			return
		}
		s.metrics.UpstreamErrors.WithLabelValues("read").Inc()
		ctx.SendError(Wrap(err, ErrStream, "reading upstream body"))
		return
	}

	declared := up.DeclaredType()
	sniffed := fetchkit.DetectImageType(up.FirstChunk)
	resolved, ok := fetchkit.ResolveContentType(declared, sniffed, p.AllowAny)
	if !ok {
		ctx.SendError(Newf(ErrUnsupportedType, "refusing non-image content type %q", declared).
			WithField("contentType", declared))
		return
	}

	filename := p.Filename
	if filename == "" {
		filename = fetchkit.FilenameFromDisposition(up.Disposition())
	}
	filename = fetchkit.SanitizeFilename(filename)

	ctx.SetHeader(fetchkit.HeaderContentType, resolved)
	ctx.SetHeader(fetchkit.HeaderCacheControl, "no-store")
	ctx.SetHeader(fetchkit.HeaderContentDisposition,
		fmt.Sprintf("%s; filename=%q", p.ContentDisposition, filename))
	if up.Response.ContentLength >= 0 {
		ctx.SetHeader(fetchkit.HeaderContentLength,
			strconv.FormatInt(up.Response.ContentLength, 10))
	}
	ctx.SetStatus(http.StatusOK)

	written, err := s.stream(ctx, up)
	s.metrics.BytesStreamed.Add(float64(written))
	if err != nil {
		// Headers are out; the only honest signal left is killing the
		// connection without further framing.
		s.log.Error().
			Err(err).
			Str("request_id", ctx.UUID).
			Int64("bytes", written).
			Msg("[relay] stream aborted")
		panic(http.ErrAbortHandler)
	}

	s.log.Info().
		Str("request_id", ctx.UUID).
		Str("content_type", resolved).
		Int64("bytes", written).
		Int64("elapsed_ms", ctx.Elapsed().Milliseconds()).
		Msg("[relay] fetch complete")
}

// stream writes the already-read first chunk and forwards the remainder of
// the upstream body without buffering the payload.
func (s *Server) stream(ctx *Ctx, up *Upstream) (int64, error) {
	var written int64
	if len(up.FirstChunk) > 0 {
		n, err := ctx.ResponseWriter.Write(up.FirstChunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	n, err := io.Copy(ctx.ResponseWriter, up.Response.Body)
	written += n
	return written, err
}
