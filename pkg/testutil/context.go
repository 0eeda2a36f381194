package testutil

import (
	"net/http"
	"time"

	"warden/pkg/requestcontext"
)

// WithActor adds an operator identity to the request context, simulating what
// the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request-scoped clock, simulating the request time
// middleware with a fixed instant.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
