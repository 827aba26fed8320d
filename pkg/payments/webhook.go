package payments

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/billing"
)

// Webhook consumes payment provider confirmations. Signature checking,
// timestamp tolerance and header parsing are the SDK's; replays inside
// the tolerance window are harmless because purchase application is
// idempotent.
type Webhook struct {
	billing        billing.Service
	endpointSecret string
	logger         *zap.Logger
}

// NewWebhook creates the webhook consumer.
func NewWebhook(billingSvc billing.Service, endpointSecret string, logger *zap.Logger) *Webhook {
	return &Webhook{
		billing:        billingSvc,
		endpointSecret: endpointSecret,
		logger:         logger,
	}
}

// RegisterRoutes registers the webhook endpoint. No session or API key
// guards it; the signature header is the authentication.
func (wh *Webhook) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", apphttp.HandleError(wh.handle))
}

func (wh *Webhook) handle(w http.ResponseWriter, r *http.Request) error {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read payload")
	}

	// The API version in the event body is Stripe's, pinned when the
	// endpoint was registered; it need not match the SDK's pin.
	event, err := webhook.ConstructEventWithOptions(payload,
		r.Header.Get("Stripe-Signature"), wh.endpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return apperrors.UnAuthorizedError(err, "invalid webhook signature")
	}

	// Event types other than checkout completion are acked and dropped;
	// the provider retries anything not answered with a 2xx.
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		wh.logger.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apperrors.BadRequestError(err, "invalid event payload")
	}
	if sess.ID == "" {
		return apperrors.BadRequestError(nil, "event has no session id")
	}

	result, err := wh.billing.ApplyPurchase(r.Context(), sess.ID)
	if err != nil {
		// Unknown sessions are acked so the provider stops retrying a
		// confirmation this deployment can never apply.
		if apperrors.Is(err, apperrors.CategoryResourceNotFound) {
			wh.logger.Warn("Confirmation for unknown checkout session",
				zap.String("checkout_id", sess.ID))
			w.WriteHeader(http.StatusOK)
			return nil
		}
		return fmt.Errorf("failed to apply purchase: %w", err)
	}

	if result.Replayed {
		wh.logger.Info("Webhook replay ignored", zap.String("checkout_id", sess.ID))
	}
	w.WriteHeader(http.StatusOK)
	return nil
}
