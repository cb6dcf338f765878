package fetchkit

import (
	"bytes"
	"strings"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	gifMagic  = []byte("GIF8")
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// DetectImageType inspects the leading bytes of a payload and returns the
// image content type they identify, or "" when the signature is unknown.
// WEBP lives in a RIFF container, so its marker sits at offset 8.
func DetectImageType(b []byte) string {
	switch {
	case bytes.HasPrefix(b, jpegMagic):
		return "image/jpeg"
	case bytes.HasPrefix(b, pngMagic):
		return "image/png"
	case bytes.HasPrefix(b, gifMagic):
		return "image/gif"
	case bytes.HasPrefix(b, riffMagic) && len(b) >= 12 && bytes.Equal(b[8:12], webpMagic):
		return "image/webp"
	}
	return ""
}

// IsImageType reports whether a content type declares image data. Parameters
// after a ";" are ignored.
func IsImageType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "image/")
}

// ResolveContentType reconciles the upstream's declared content type with the
// sniffed one. A declared image/* type always wins: the sniff result only
// substitutes when the declaration is missing or non-image. The second return
// is false when the resolved type is still not image/* and allowAny is unset,
// meaning the payload must be rejected.
func ResolveContentType(declared, sniffed string, allowAny bool) (string, bool) {
	resolved := declared
	if !IsImageType(resolved) && sniffed != "" {
		resolved = sniffed
	}
	if IsImageType(resolved) {
		return resolved, true
	}
	if allowAny {
		if resolved == "" {
			resolved = "application/octet-stream"
		}
		return resolved, true
	}
	return resolved, false
}
