// Package payments is the boundary to the payment provider: creating
// hosted checkout sessions and consuming signed confirmation webhooks
// through the Stripe SDK.
package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"

	"github.com/luminet/hub-api/pkg/billing"
	"github.com/luminet/hub-api/pkg/config"
)

// StripeClient creates checkout sessions against Stripe's API.
// Implements billing.CheckoutProvider.
type StripeClient struct {
	api           *client.API
	secretKey     string
	creditPriceID string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

// NewStripeClient creates a Stripe API client from config. When a credit
// price id is configured, checkouts reference that catalog price;
// otherwise the price is built inline from the computed amount.
func NewStripeClient(cfg *config.StripeConfig, logger *zap.Logger) *StripeClient {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeClient{
		api:           api,
		secretKey:     cfg.SecretKey,
		creditPriceID: cfg.CreditPriceID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        logger,
	}
}

// WithBaseURL points the client at a different API host. Test hook.
func (c *StripeClient) WithBaseURL(base string) *StripeClient {
	c.api.Init(c.secretKey, stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL: stripe.String(base),
	}))
	return c
}

// CreateCheckout opens a hosted checkout session priced at amountUSDCents.
// The user id travels as client_reference_id so the confirmation can be
// tied back even if the local session row is lost.
func (c *StripeClient) CreateCheckout(
	ctx context.Context,
	userID string,
	credits, amountUSDCents int64,
) (*billing.Checkout, error) {
	item := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if c.creditPriceID != "" {
		item.Price = stripe.String(c.creditPriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(amountUSDCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(fmt.Sprintf("%d credits", credits)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{item},
	}
	params.Context = ctx
	params.AddMetadata("credits", strconv.FormatInt(credits, 10))
	params.AddMetadata("user_id", userID)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if sess.ID == "" || sess.URL == "" {
		return nil, fmt.Errorf("checkout session missing id or url")
	}

	return &billing.Checkout{ID: sess.ID, URL: sess.URL}, nil
}
