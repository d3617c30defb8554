package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Upstream proxies and the mobile client send opaque ids; anything that could
// break a log line is replaced.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{8,128}$`)

// RequestID tags every request with an id, echoed back on the response and
// attached to the request logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := withRequestID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
