package fetchkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectImageType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png"},
		{"gif87a", []byte("GIF87a...."), "image/gif"},
		{"gif89a", []byte("GIF89a...."), "image/gif"},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"riff but not webp", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), ""},
		{"short riff", []byte("RIFF"), ""},
		{"unknown", []byte("hello world"), ""},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectImageType(tc.data))
		})
	}
}

func TestResolveContentTypeSniffOverridesNonImage(t *testing.T) {
	ct, ok := ResolveContentType("text/plain", "image/jpeg", false)
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)

	ct, ok = ResolveContentType("", "image/png", false)
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
}

func TestResolveContentTypeDeclaredImageWins(t *testing.T) {
	// A declared image/* type is trusted even when the signature disagrees.
	ct, ok := ResolveContentType("image/png", "image/jpeg", false)
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	ct, ok = ResolveContentType("image/png", "", false)
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
}

func TestResolveContentTypeRejectsNonImage(t *testing.T) {
	ct, ok := ResolveContentType("text/html", "", false)
	assert.False(t, ok)
	assert.Equal(t, "text/html", ct)
}

func TestResolveContentTypeAllowAny(t *testing.T) {
	ct, ok := ResolveContentType("text/html", "", true)
	assert.True(t, ok)
	assert.Equal(t, "text/html", ct)

	ct, ok = ResolveContentType("", "", true)
	assert.True(t, ok)
	assert.Equal(t, "application/octet-stream", ct)
}

func TestIsImageType(t *testing.T) {
	assert.True(t, IsImageType("image/jpeg"))
	assert.True(t, IsImageType("IMAGE/PNG"))
	assert.True(t, IsImageType(" image/webp; charset=binary"))
	assert.False(t, IsImageType("text/html"))
	assert.False(t, IsImageType(""))
}
