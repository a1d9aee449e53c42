package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"fieldreg/pkg/requestcontext"
)

// SessionHeader carries the actor session id issued at login.
const SessionHeader = "X-Session-ID"

// SessionValidator resolves a session id to the ambassador behind it.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (ambassadorID int64, err error)
}

// GetSessionID retrieves the session id from the context.
func GetSessionID(ctx context.Context) string {
	return requestcontext.SessionID(ctx)
}

// GetAmbassadorID retrieves the ambassador id set by RequireSession.
func GetAmbassadorID(ctx context.Context) int64 {
	return requestcontext.AmbassadorID(ctx)
}

// RequireSession rejects requests without a live actor session.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing "+SessionHeader+" header")
				return
			}

			ambassadorID, err := validator.ValidateSession(ctx, sessionID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - unknown session",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Session expired or logged out")
				return
			}

			ctx = requestcontext.WithSessionID(ctx, sessionID)
			ctx = requestcontext.WithAmbassadorID(ctx, ambassadorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession validates the session header when present and lets
// anonymous requests through. A stale session is still rejected.
func OptionalSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	strict := RequireSession(validator, logger)
	return func(next http.Handler) http.Handler {
		guarded := strict(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get(SessionHeader)) == "" {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
