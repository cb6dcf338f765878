package fetchkit

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultFilename is used when nothing else resolves.
const DefaultFilename = "file"

var (
	dispExtRe   = regexp.MustCompile(`(?i)filename\*\s*=\s*UTF-8''([^;]+)`)
	dispPlainRe = regexp.MustCompile(`(?i)filename\s*=\s*"([^"]*)"`)
	unsafeRe    = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// FilenameFromDisposition extracts a filename from a Content-Disposition
// header value, preferring the RFC 5987 filename*=UTF-8'' form over the
// quoted filename= form. Returns "" when neither is present.
func FilenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	if m := dispExtRe.FindStringSubmatch(disposition); m != nil {
		name := strings.TrimSpace(m[1])
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		return name
	}
	if m := dispPlainRe.FindStringSubmatch(disposition); m != nil {
		name := m[1]
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		return name
	}
	return ""
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with "_"
// and falls back to DefaultFilename for empty input.
func SanitizeFilename(name string) string {
	name = unsafeRe.ReplaceAllString(name, "_")
	if name == "" {
		return DefaultFilename
	}
	return name
}

// FilenameFromURL derives a filename from the URL's path basename. Returns ""
// when the URL has no usable basename.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return ""
	}
	return base
}
