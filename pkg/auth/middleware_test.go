package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
)

type mockSessionStore struct {
	getSession func(ctx context.Context, id string) (*schema.Session, error)
}

func (m *mockSessionStore) GetSession(ctx context.Context, id string) (*schema.Session, error) {
	return m.getSession(ctx, id)
}

type mockKeyStore struct {
	getKeyOwner func(ctx context.Context, key string) (string, error)
}

func (m *mockKeyStore) GetKeyOwner(ctx context.Context, key string) (string, error) {
	return m.getKeyOwner(ctx, key)
}

func echoUserHandler(t *testing.T, wantUser string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Error("no user id on request context")
		}
		if userID != wantUser {
			t.Errorf("context user = %q, want %q", userID, wantUser)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireSession(t *testing.T) {
	const cookieName = "hub_session"

	tests := []struct {
		name       string
		cookie     string
		session    *schema.Session
		sessionErr error
		wantStatus int
	}{
		{
			name:       "valid session",
			cookie:     "s_live",
			session:    &schema.Session{ID: "s_live", UserID: "u_1", ExpiresAt: time.Now().Add(time.Hour)},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "missing cookie",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown session",
			cookie:     "s_gone",
			sessionErr: hubdb.ErrSessionNotFound,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired session",
			cookie:     "s_old",
			session:    &schema.Session{ID: "s_old", UserID: "u_1", ExpiresAt: time.Now().Add(-time.Minute)},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &mockSessionStore{
				getSession: func(_ context.Context, id string) (*schema.Session, error) {
					if tt.sessionErr != nil {
						return nil, tt.sessionErr
					}
					if tt.session == nil || tt.session.ID != id {
						return nil, hubdb.ErrSessionNotFound
					}
					return tt.session, nil
				},
			}
			m := NewMiddleware(sessions, nil, cookieName)

			req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			m.RequireSession(echoUserHandler(t, "u_1")).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	keys := &mockKeyStore{
		getKeyOwner: func(_ context.Context, key string) (string, error) {
			if key == "sn4_goodkey" {
				return "u_owner", nil
			}
			return "", hubdb.ErrKeyNotFound
		},
	}
	m := NewMiddleware(nil, keys, "hub_session")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid key", "Bearer sn4_goodkey", http.StatusNoContent},
		{"lowercase scheme", "bearer sn4_goodkey", http.StatusNoContent},
		{"unknown key", "Bearer sn4_badkey", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic sn4_goodkey", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.RequireAPIKey(echoUserHandler(t, "u_owner")).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if err := CheckPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("CheckPassword() with right password failed: %v", err)
	}
	if err := CheckPassword(hash, "wrong password"); err != ErrWrongPassword {
		t.Errorf("CheckPassword() with wrong password error = %v, want ErrWrongPassword", err)
	}

	if _, err := HashPassword("short"); err == nil {
		t.Error("HashPassword() accepted a too-short password")
	}
}
