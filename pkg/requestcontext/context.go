// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services and the audit publisher read them
// without importing net/http.
//
//	sessionID := requestcontext.SessionID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	client := requestcontext.Client(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithSessionID(ctx, "s-1")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	sessionIDKey    struct{}
	ambassadorIDKey struct{}
	clientKey       struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// Exported context keys for tests that need context.WithValue.
var (
	ContextKeySessionID    = sessionIDKey{}
	ContextKeyAmbassadorID = ambassadorIDKey{}
	ContextKeyClient       = clientKey{}
	ContextKeyRequestID    = requestIDKey{}
	ContextKeyRequestTime  = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// SessionID retrieves the actor session id from the context.
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return id
	}
	return ""
}

// WithSessionID injects an actor session id into the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// AmbassadorID retrieves the ambassador behind the session, or 0.
func AmbassadorID(ctx context.Context) int64 {
	if id, ok := ctx.Value(ContextKeyAmbassadorID).(int64); ok {
		return id
	}
	return 0
}

// WithAmbassadorID injects the ambassador behind the session.
func WithAmbassadorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ContextKeyAmbassadorID, id)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

// ClientInfo describes the caller as seen by the HTTP edge.
type ClientInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Mobile    bool   `json:"mobile,omitempty"`
}

// Client retrieves the client metadata from the context.
func Client(ctx context.Context) ClientInfo {
	if c, ok := ctx.Value(ContextKeyClient).(ClientInfo); ok {
		return c
	}
	return ClientInfo{}
}

// WithClient injects client metadata into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClient(ctx context.Context, c ClientInfo) context.Context {
	return context.WithValue(ctx, ContextKeyClient, c)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() outside HTTP requests (terminal client, workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
