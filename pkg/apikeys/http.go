package apikeys

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/auth"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers key management endpoints. The router is
// expected to already require a browser session: keys are managed from
// the dashboard, never with another key.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Get("/keys", apphttp.HandleError(h.list))
	r.Post("/keys", apphttp.HandleError(h.create))
	r.Post("/keys/roll", apphttp.HandleError(h.roll))
}

type keyResponse struct {
	Key string `json:"key"`
}

type listResponse struct {
	Keys []string `json:"keys"`
}

type rollRequest struct {
	Key string `json:"key"`
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	keys, err := h.service.List(r.Context(), userID)
	if err != nil {
		return err
	}
	if keys == nil {
		keys = []string{}
	}
	return apphttp.WriteJSON(w, http.StatusOK, &listResponse{Keys: keys})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	key, err := h.service.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusCreated, &keyResponse{Key: key})
}

func (h *HTTP) roll(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	var req rollRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if req.Key == "" {
		return apperrors.BadRequestError(nil, "key is required")
	}

	newKey, err := h.service.Roll(r.Context(), userID, req.Key)
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, &keyResponse{Key: newKey})
}
