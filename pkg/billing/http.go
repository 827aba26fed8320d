package billing

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

// RegisterRoutes registers balance and purchase endpoints. The router is
// expected to already require a browser session.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Get("/credits", apphttp.HandleError(h.balance))
	r.Post("/credits/checkout", apphttp.HandleError(h.checkout))
}

type balanceResponse struct {
	Credits int64 `json:"credits"`
}

type checkoutRequest struct {
	Credits int64 `json:"credits"`
}

func (h *HTTP) balance(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	credits, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, &balanceResponse{Credits: credits})
}

func (h *HTTP) checkout(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	checkout, err := h.service.InitiateCheckout(r.Context(), userID, req.Credits)
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusCreated, checkout)
}
