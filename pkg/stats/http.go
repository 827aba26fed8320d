package stats

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/luminet/hub-api/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the public read-only stats endpoints. Paths
// are absolute; the package expects the root router.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Get("/v1/models", apphttp.HandleError(h.models))
	r.Get("/stats/validators", apphttp.HandleError(h.validators))
	r.Get("/stats/miner/{query}", apphttp.HandleError(h.miner))
	r.Get("/stats/requests/daily", apphttp.HandleError(h.dailyRequests))
}

func (h *HTTP) models(w http.ResponseWriter, r *http.Request) error {
	models, err := h.service.Models(r.Context())
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, models)
}

func (h *HTTP) validators(w http.ResponseWriter, r *http.Request) error {
	validators, err := h.service.Validators(r.Context())
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, validators)
}

func (h *HTTP) miner(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.service.Miner(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, stats)
}

func (h *HTTP) dailyRequests(w http.ResponseWriter, r *http.Request) error {
	counts, err := h.service.DailyRequests(r.Context())
	if err != nil {
		return err
	}
	return apphttp.WriteJSON(w, http.StatusOK, counts)
}
