package service

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/auth"
	"github.com/luminet/hub-api/pkg/user"
)

const maxBodyBytes = 1 << 20 // 1MB limit

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service      Service
	logger       *zap.Logger
	cookieName   string
	cookieSecure bool
}

// RegisterRoutes registers account and session endpoints on the given chi router
func RegisterRoutes(
	r chi.Router,
	service Service,
	mw *auth.Middleware,
	cookieName string,
	cookieSecure bool,
	logger *zap.Logger,
) {
	h := &HTTP{
		service:      service,
		logger:       logger,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
	}

	r.Post("/auth/signup", apphttp.HandleError(h.signUp))
	r.Post("/auth/login", apphttp.HandleError(h.logIn))
	r.Post("/auth/google", apphttp.HandleError(h.googleSignIn))

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession)
		r.Post("/auth/logout", apphttp.HandleError(h.logOut))
		r.Get("/me", apphttp.HandleError(h.me))
	})
}

func (h *HTTP) signUp(w http.ResponseWriter, r *http.Request) error {
	var req user.SignUpRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	result, err := h.service.SignUp(r.Context(), &req)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, result)
	return apphttp.WriteJSON(w, http.StatusCreated, &user.Profile{ID: result.UserID, Email: req.Email})
}

func (h *HTTP) logIn(w http.ResponseWriter, r *http.Request) error {
	var req user.LogInRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	result, err := h.service.LogIn(r.Context(), &req)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, result)
	return apphttp.WriteJSON(w, http.StatusOK, &user.Profile{ID: result.UserID, Email: req.Email})
}

func (h *HTTP) googleSignIn(w http.ResponseWriter, r *http.Request) error {
	var req user.GoogleSignInRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	result, err := h.service.SignInWithGoogle(r.Context(), &req)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, result)
	return apphttp.WriteJSON(w, http.StatusOK, &user.Profile{ID: result.UserID})
}

func (h *HTTP) logOut(w http.ResponseWriter, r *http.Request) error {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	if err := h.service.LogOut(r.Context(), sessionID); err != nil {
		return err
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) me(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, profile)
}

func (h *HTTP) setSessionCookie(w http.ResponseWriter, result *user.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    result.SessionID,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *HTTP) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}
