// Package context provides context utilities for nrlogs.
package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey is the context key for storing the per-call request ID.
	RequestIDKey contextKey = "request_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithNewRequestID adds a freshly generated request ID to the context.
func WithNewRequestID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// GetRequestID retrieves the request ID from context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
