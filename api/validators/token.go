package validators

import (
	"errors"
	"strings"
)

var ErrMissingBearer = errors.New("bearer token missing")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", ErrMissingBearer
	}
	token := strings.TrimSpace(header[7:])
	if token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}
