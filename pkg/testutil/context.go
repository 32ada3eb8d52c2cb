package testutil

import (
	"context"
	"net/http"

	"console/pkg/requestcontext"
)

// WithAuthorization adds the caller's Authorization header value to the
// request context, as the forwarding middleware would.
func WithAuthorization(req *http.Request, value string) *http.Request {
	return req.WithContext(requestcontext.WithAuthorization(req.Context(), value))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
