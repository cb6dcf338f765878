package relay

import (
	"context"
	"io"
	"net/http"

	"github.com/tolven/imgrelay/fetchkit"
)

// Upstream is the in-flight upstream response plus the first body chunk read
// for sniffing. It belongs exclusively to the request that issued the fetch.
type Upstream struct {
	Response   *http.Response
	FirstChunk []byte
}

// DeclaredType returns the upstream's Content-Type header.
func (u *Upstream) DeclaredType() string {
	return u.Response.Header.Get(fetchkit.HeaderContentType)
}

// Disposition returns the upstream's Content-Disposition header.
func (u *Upstream) Disposition() string {
	return u.Response.Header.Get(fetchkit.HeaderContentDisposition)
}

func (u *Upstream) Close() {
	u.Response.Body.Close()
}

// fetchUpstream performs the single upstream GET. Transport failures and
// non-2xx statuses both surface as 502-class errors; redirects are followed
// by the client. The context carries the clamped timeout and is tied to the
// inbound connection, so a dropped client cancels the fetch.
func (s *Server) fetchUpstream(ctx context.Context, p FetchParams) (*Upstream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, Wrap(err, ErrInvalidRequest, "building upstream request")
	}
	req.Header = fetchkit.BuildHeaders(fetchkit.HeaderOptions{
		Lines:    p.Headers,
		Cookies:  p.Cookies,
		Auth:     p.Auth,
		Referer:  p.Referer,
		Origin:   p.Origin,
		Defaults: s.cfg.DefaultHeaders,
	})

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Wrap(err, ErrUpstream, "upstream fetch failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, Newf(ErrUpstream, "upstream returned status %d", resp.StatusCode).
			WithField("upstreamStatus", resp.StatusCode)
	}

	return &Upstream{Response: resp}, nil
}

// readFirstChunk performs the single peek read used for sniffing. The sniff
// result is derived from whatever the first read returns and never revisited.
func (u *Upstream) readFirstChunk() error {
	buf := make([]byte, 4096)
	for {
		n, err := u.Response.Body.Read(buf)
		if n > 0 {
			u.FirstChunk = buf[:n]
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
