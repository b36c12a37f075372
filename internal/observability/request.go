package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "studentauth_request_id"

// NewRequestID returns a fresh random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID attaches a request id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id attached to ctx, generating
// one if none is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return NewRequestID()
}
