// Package env provides typed environment variable accessors with defaults.
package env

import (
	"os"
	"strconv"
)

// Get returns the value of an environment variable or a default when unset.
func Get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns an environment variable as an integer, or the default when
// unset or unparsable.
func GetInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// GetBool returns an environment variable as a boolean, or the default when
// unset or unparsable. Accepts the strconv.ParseBool forms.
func GetBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}
