package apikeys

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/auth"
	"github.com/luminet/hub-api/pkg/hubdb"
)

type mockStore struct {
	listKeys  func(ctx context.Context, userID string) ([]string, error)
	createKey func(ctx context.Context, userID string) (string, error)
	rotateKey func(ctx context.Context, userID, oldKey string) (string, error)
}

func (m *mockStore) ListKeys(ctx context.Context, userID string) ([]string, error) {
	return m.listKeys(ctx, userID)
}
func (m *mockStore) CreateKey(ctx context.Context, userID string) (string, error) {
	return m.createKey(ctx, userID)
}
func (m *mockStore) RotateKey(ctx context.Context, userID, oldKey string) (string, error) {
	return m.rotateKey(ctx, userID, oldKey)
}

func TestKeyService_Roll(t *testing.T) {
	ctx := context.Background()

	t.Run("owned key rolls", func(t *testing.T) {
		store := &mockStore{
			rotateKey: func(_ context.Context, userID, oldKey string) (string, error) {
				if userID == "u_owner" && oldKey == "sn4_old" {
					return "sn4_new", nil
				}
				return "", hubdb.ErrKeyNotOwned
			},
		}
		svc := NewService(store, zap.NewNop())

		newKey, err := svc.Roll(ctx, "u_owner", "sn4_old")
		if err != nil {
			t.Fatalf("Roll() failed: %v", err)
		}
		if newKey != "sn4_new" {
			t.Errorf("Roll() = %q, want sn4_new", newKey)
		}
	})

	t.Run("unowned key is forbidden", func(t *testing.T) {
		store := &mockStore{
			rotateKey: func(context.Context, string, string) (string, error) {
				return "", hubdb.ErrKeyNotOwned
			},
		}
		svc := NewService(store, zap.NewNop())

		_, err := svc.Roll(ctx, "u_intruder", "sn4_other")
		if !errors.Is(err, hubdb.ErrKeyNotOwned) {
			t.Fatalf("expected ErrKeyNotOwned, got %v", err)
		}
		if !apperrors.Is(err, apperrors.CategoryForbidden) {
			t.Fatalf("expected CategoryForbidden, got %v", err)
		}
	})
}

// withTestUser fakes an upstream session middleware.
func withTestUser(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func newKeysTestServer(svc Service, userID string) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return withTestUser(userID, r)
}

func TestKeysHTTP_List(t *testing.T) {
	store := &mockStore{
		listKeys: func(_ context.Context, userID string) ([]string, error) {
			if userID != "u_owner" {
				return nil, nil
			}
			return []string{"sn4_one", "sn4_two"}, nil
		},
	}
	handler := newKeysTestServer(NewService(store, zap.NewNop()), "u_owner")

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var got struct {
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	if len(got.Keys) != 2 {
		t.Errorf("keys = %v, want 2 entries", got.Keys)
	}
}

func TestKeysHTTP_Roll(t *testing.T) {
	store := &mockStore{
		rotateKey: func(_ context.Context, userID, oldKey string) (string, error) {
			if userID == "u_owner" && oldKey == "sn4_old" {
				return "sn4_new", nil
			}
			return "", hubdb.ErrKeyNotOwned
		},
	}
	handler := newKeysTestServer(NewService(store, zap.NewNop()), "u_owner")

	t.Run("owned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/keys/roll", bytes.NewBufferString(`{"key":"sn4_old"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var got struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response JSON: %v", err)
		}
		if got.Key != "sn4_new" {
			t.Errorf("rolled key = %q, want sn4_new", got.Key)
		}
	})

	t.Run("not owned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/keys/roll", bytes.NewBufferString(`{"key":"sn4_other"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
		}
	})

	t.Run("missing key field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/keys/roll", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}
