// Package fetchkit holds the fetch-and-validate building blocks shared by the
// relay service and the batch downloader: outbound header assembly, image
// magic-byte sniffing, and filename resolution.
package fetchkit

import (
	"net/http"
	"strings"
)

// Header names used across the relay and downloader.
const (
	HeaderAccept             = "Accept"
	HeaderAuthorization      = "Authorization"
	HeaderCacheControl       = "Cache-Control"
	HeaderContentDisposition = "Content-Disposition"
	HeaderContentLength      = "Content-Length"
	HeaderContentType        = "Content-Type"
	HeaderCookie             = "Cookie"
	HeaderOrigin             = "Origin"
	HeaderReferer            = "Referer"
	HeaderUserAgent          = "User-Agent"
)

// Defaults applied when HeaderOptions.Defaults is set and the caller supplied
// no value of their own.
const (
	DefaultAccept    = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// HeaderOptions describes the caller-supplied pieces of an outbound header
// set. Lines are raw "Name: Value" strings; Cookies are merged into a single
// Cookie header in order.
type HeaderOptions struct {
	Lines   []string
	Cookies []string
	Auth    string
	Referer string
	Origin  string

	// Defaults injects a browser-like Accept and User-Agent when the caller
	// did not set them. The relay makes this configurable; the downloader
	// never sets it.
	Defaults bool
}

// BuildHeaders assembles the outbound header set. Malformed Lines entries
// (no colon, or an empty name) are dropped silently.
func BuildHeaders(opts HeaderOptions) http.Header {
	h := make(http.Header)

	for _, line := range opts.Lines {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			continue
		}
		h.Set(name, value)
	}

	if len(opts.Cookies) > 0 {
		h.Set(HeaderCookie, strings.Join(opts.Cookies, "; "))
	}

	if opts.Auth != "" {
		h.Set(HeaderAuthorization, AuthorizationValue(opts.Auth))
	}
	if opts.Referer != "" {
		h.Set(HeaderReferer, opts.Referer)
	}
	if opts.Origin != "" {
		h.Set(HeaderOrigin, opts.Origin)
	}

	if opts.Defaults {
		if h.Get(HeaderAccept) == "" {
			h.Set(HeaderAccept, DefaultAccept)
		}
		if h.Get(HeaderUserAgent) == "" {
			h.Set(HeaderUserAgent, DefaultUserAgent)
		}
	}

	return h
}

// AuthorizationValue prefixes a bare token with "Bearer ". Values already
// carrying a Bearer or Basic scheme pass through unchanged.
func AuthorizationValue(v string) string {
	if strings.HasPrefix(v, "Bearer ") || strings.HasPrefix(v, "Basic ") {
		return v
	}
	return "Bearer " + v
}
