package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampTimeout(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 15*time.Second, cfg.clampTimeout(0), "absent timeout uses default")
	assert.Equal(t, 5*time.Second, cfg.clampTimeout(5000))
	assert.Equal(t, 1*time.Second, cfg.clampTimeout(200), "below floor clamps up")
	assert.Equal(t, 120*time.Second, cfg.clampTimeout(600000), "above ceiling clamps down")
	assert.Equal(t, 1*time.Second, cfg.clampTimeout(1000))
	assert.Equal(t, 120*time.Second, cfg.clampTimeout(120000))
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := Config{}.normalize()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, 1*time.Second, cfg.MinTimeout)
	assert.Equal(t, 120*time.Second, cfg.MaxTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	// WriteTimeout stays zero: streamed responses must not be cut mid-transfer.
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)

	cfg = Config{Port: 8080}.normalize()
	assert.Equal(t, 8080, cfg.Port)
}
