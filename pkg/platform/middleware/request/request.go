// Package request provides request-ID middleware.
// Every request gets a UUID that is echoed in the X-Request-ID response
// header and attached to all log lines produced while handling it.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"remail/pkg/requestcontext"
)

// Middleware assigns a request ID, honoring an inbound X-Request-ID header
// so IDs survive proxy hops.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
