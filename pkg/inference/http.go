package inference

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/auth"
)

// maxRequestBytes bounds the inference payload size.
const maxRequestBytes = 4 << 20

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the completion endpoint. The router is
// expected to already require an API key.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Post("/chat/completions", apphttp.HandleError(h.chatCompletion))
}

func (h *HTTP) chatCompletion(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	body, err := h.service.ChatCompletion(r.Context(), userID, payload)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return nil
}
