package request

import (
	"net/http"

	"lending/pkg/id"

	"github.com/go-chi/chi/middleware"
)

// HeaderRequestID request id header
const HeaderRequestID = "X-Request-Id"

// WithRequestID carry the caller request id into ctx, operation trace ids are
// derived from it
func WithRequestID(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		if requestID != "" {
			r = r.WithContext(id.WithRequestID(r.Context(), requestID))
		}

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
