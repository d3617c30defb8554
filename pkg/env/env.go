package env

import (
	"os"
	"strings"
)

// Lookup returns the first non-blank value among keys.
func Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val, true
		}
	}
	return "", false
}

func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

// ListenAddr builds the HTTP listen address. PORT set by the platform wins
// over the configured port; a value that already has a host is used as is.
func ListenAddr(configuredPort string) string {
	port := Get("PORT", configuredPort)
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
