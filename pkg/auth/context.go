package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyUserID is the context key for the authenticated user's id
	ContextKeyUserID contextKey = "user_id"
	// ContextKeySessionID is the context key for the browser session id
	ContextKeySessionID contextKey = "session_id"
	// ContextKeyAPIKey is the context key for the presented API key
	ContextKeyAPIKey contextKey = "api_key"
)

// WithUserID adds the user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext retrieves the user ID from the context
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok
}

// WithSessionID adds the session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// SessionIDFromContext retrieves the session ID from the context
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeySessionID).(string)
	return id, ok
}

// WithAPIKey adds the presented API key to the context
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyAPIKey, key)
}

// APIKeyFromContext retrieves the presented API key from the context
func APIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ContextKeyAPIKey).(string)
	return key, ok
}
