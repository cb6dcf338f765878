package fetchkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilenameFromDisposition(t *testing.T) {
	assert.Equal(t, "photo.jpg", FilenameFromDisposition(`attachment; filename="photo.jpg"`))
	assert.Equal(t, "naïve.png", FilenameFromDisposition(`attachment; filename*=UTF-8''na%C3%AFve.png`))
	// filename* takes precedence over the quoted form.
	assert.Equal(t, "ext.png", FilenameFromDisposition(`attachment; filename="plain.png"; filename*=UTF-8''ext.png`))
	assert.Equal(t, "", FilenameFromDisposition("inline"))
	assert.Equal(t, "", FilenameFromDisposition(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "photo.jpg", SanitizeFilename("photo.jpg"))
	assert.Equal(t, "a_b_c_.png", SanitizeFilename(`a b/c*.png`))
	assert.Equal(t, "na_ve.png", SanitizeFilename("naïve.png"))
	assert.Equal(t, "file", SanitizeFilename(""))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "cat.webp", FilenameFromURL("https://cdn.example.com/img/cat.webp?w=200"))
	assert.Equal(t, "", FilenameFromURL("https://cdn.example.com/"))
	assert.Equal(t, "", FilenameFromURL("https://cdn.example.com"))
}
