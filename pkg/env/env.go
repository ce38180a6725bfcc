// Package env provides raw environment lookups for the handful of
// settings read before the envconfig-backed configuration loads.
package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable, falling back
// when it is unset or blank.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return fallback
}
