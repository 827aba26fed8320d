package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
)

// SessionStore resolves browser session ids. Narrow interface so the
// middleware stays decoupled from the store implementation.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*schema.Session, error)
}

// KeyStore resolves API keys to their owning user.
type KeyStore interface {
	GetKeyOwner(ctx context.Context, key string) (string, error)
}

// Middleware authenticates requests either by session cookie (browser
// endpoints) or by bearer API key (programmatic endpoints).
type Middleware struct {
	sessions   SessionStore
	keys       KeyStore
	cookieName string
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(sessions SessionStore, keys KeyStore, cookieName string) *Middleware {
	return &Middleware{
		sessions:   sessions,
		keys:       keys,
		cookieName: cookieName,
	}
}

// RequireSession rejects requests without a live session cookie. On
// success the user id and session id are placed on the request context.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "authentication required"))
			return
		}

		sess, err := m.sessions.GetSession(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, hubdb.ErrSessionNotFound) {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid session"))
				return
			}
			apphttp.DefaultErrorHandler(w, err)
			return
		}
		if time.Now().After(sess.ExpiresAt) {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "session expired"))
			return
		}

		ctx := WithUserID(r.Context(), sess.UserID)
		ctx = WithSessionID(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPIKey rejects requests without a valid bearer API key. On
// success the key's owner is placed on the request context.
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := bearerToken(r)
		if !ok {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "api key required"))
			return
		}

		userID, err := m.keys.GetKeyOwner(r.Context(), key)
		if err != nil {
			if errors.Is(err, hubdb.ErrKeyNotFound) {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid api key"))
				return
			}
			apphttp.DefaultErrorHandler(w, err)
			return
		}

		ctx := WithUserID(r.Context(), userID)
		ctx = WithAPIKey(ctx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the credential from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
