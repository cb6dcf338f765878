package relay

import "time"

// Config holds the server's startup configuration. It is passed explicitly to
// NewServer so nothing process-global leaks into request handling.
type Config struct {
	// Port the HTTP listener binds to.
	Port int

	// DefaultHeaders injects a browser-like Accept and User-Agent into
	// upstream requests when the caller did not supply them. The two observed
	// deployments of this service disagree on the behavior, so it is an
	// explicit switch rather than a baked-in choice.
	DefaultHeaders bool

	// Timeout clamp applied to the per-request `timeout` parameter.
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	DefaultTimeout time.Duration

	// HTTP server timeouts.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		Port:            3000,
		DefaultHeaders:  true,
		MinTimeout:      1 * time.Second,
		MaxTimeout:      120 * time.Second,
		DefaultTimeout:  15 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // streaming responses must not be cut mid-transfer
		ShutdownTimeout: 10 * time.Second,
	}
}

// normalize fills zero values with the defaults so a partially populated
// Config stays usable.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.MinTimeout == 0 {
		c.MinTimeout = def.MinTimeout
	}
	if c.MaxTimeout == 0 {
		c.MaxTimeout = def.MaxTimeout
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = def.DefaultTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

// clampTimeout resolves a caller-supplied timeout in milliseconds against the
// configured bounds. Zero (absent or non-numeric input) yields the default.
func (c Config) clampTimeout(ms int64) time.Duration {
	if ms <= 0 {
		return c.DefaultTimeout
	}
	d := time.Duration(ms) * time.Millisecond
	if d < c.MinTimeout {
		return c.MinTimeout
	}
	if d > c.MaxTimeout {
		return c.MaxTimeout
	}
	return d
}
