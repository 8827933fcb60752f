// Package net carries request-scoped ids and the JSON envelope shared by the census API
package net

import (
	"context"

	"heapcensus/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WithRequest stamps the request and debug session ids on ctx for chi, the logger and envelopes
func WithRequest(ctx context.Context, reqID, sessionID string) context.Context {
	if reqID != "" && chimw.GetReqID(ctx) != reqID {
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	return logger.WithRequest(ctx, reqID, sessionID)
}

// RequestID prefers chi's id, which RequestID middleware sets before any stamping
func RequestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return logger.RequestID(ctx)
}

// SessionID returns the debug session id, if stamped
func SessionID(ctx context.Context) string { return logger.SessionID(ctx) }
