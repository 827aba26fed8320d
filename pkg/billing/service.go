// Package billing implements the credit ledger: charging requests,
// applying purchases, refunds and checkout initiation. All balance
// arithmetic lives in the store; this layer owns pricing, policy and the
// named outcomes.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/luminet/hub-api/internal/metrics"
	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
)

var (
	ErrModelDisabled     = errors.New("model is disabled")
	ErrPurchaseTooSmall  = errors.New("purchase below minimum")
	ErrUnknownCheckout   = errors.New("unknown checkout session")
	ErrInsufficientFunds = errors.New("insufficient credits")
)

// Store is the narrow data-access interface for the billing service.
type Store interface {
	GetModel(ctx context.Context, id string) (*schema.Model, error)
	GetCredits(ctx context.Context, userID string) (int64, error)
	ChargeAndRecord(ctx context.Context, cost int64, req *schema.OrganicRequest) (int64, error)
	RefundOrganicRequest(ctx context.Context, pubID, userID string, credits int64) (int64, error)
	CreateCheckoutSession(ctx context.Context, cs *schema.CheckoutSession) error
	ApplyPurchase(ctx context.Context, checkoutID string) (userID string, credits, newBalance int64, err error)
}

// Checkout is a provider-hosted payment page for a credit purchase.
type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutProvider creates hosted payment sessions. Implemented by the
// payments package; an interface here so billing never sees wire details.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, userID string, credits, amountUSDCents int64) (*Checkout, error)
}

// ChargeRequest describes one inference request to be charged.
type ChargeRequest struct {
	UserID  string
	ModelID string
	// Tokens is the request's token budget; the charge is Tokens times the
	// model's credits-per-token price.
	Tokens  int64
	Payload json.RawMessage
}

// ChargeResult reports an accepted charge.
type ChargeResult struct {
	PubID      string
	Cost       int64
	NewBalance int64
}

// PurchaseResult reports an applied (or replayed) purchase confirmation.
type PurchaseResult struct {
	UserID     string
	Credits    int64
	NewBalance int64
	// Replayed is set when the confirmation had already been consumed;
	// the balance was not touched again.
	Replayed bool
}

// Service defines the interface for credit accounting business logic.
type Service interface {
	Balance(ctx context.Context, userID string) (int64, error)
	ChargeForRequest(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, pubID, userID, modelID string, credits int64) (int64, error)
	InitiateCheckout(ctx context.Context, userID string, credits int64) (*Checkout, error)
	ApplyPurchase(ctx context.Context, checkoutID string) (*PurchaseResult, error)
}

type billingService struct {
	store              Store
	provider           CheckoutProvider
	logger             *zap.Logger
	pricing            Pricing
	minPurchaseCredits int64
}

// NewService creates a new billing service.
func NewService(
	store Store,
	provider CheckoutProvider,
	logger *zap.Logger,
	pricing Pricing,
	minPurchaseCredits int64,
) Service {
	return &billingService{
		store:              store,
		provider:           provider,
		logger:             logger,
		pricing:            pricing,
		minPurchaseCredits: minPurchaseCredits,
	}
}

// Balance returns the user's spendable credits.
func (s *billingService) Balance(ctx context.Context, userID string) (int64, error) {
	credits, err := s.store.GetCredits(ctx, userID)
	if err != nil {
		if errors.Is(err, hubdb.ErrUserNotFound) {
			return 0, apperrors.ResourceNotFoundError(err, "user not found")
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

// ChargeForRequest prices the request against the model's catalog entry and
// atomically debits the user while recording the request. A balance that
// cannot cover the cost is a named outcome: nothing is debited and nothing
// is recorded.
func (s *billingService) ChargeForRequest(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req.Tokens <= 0 {
		return nil, apperrors.BadRequestError(nil, "token budget must be positive")
	}

	model, err := s.store.GetModel(ctx, req.ModelID)
	if err != nil {
		if errors.Is(err, hubdb.ErrModelNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "unknown model")
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	if !model.Enabled {
		return nil, apperrors.BadRequestError(ErrModelDisabled, "model is disabled")
	}

	cost := req.Tokens * model.CPT

	record := &schema.OrganicRequest{
		PubID:   schema.NewOrganicRequestID(),
		UserID:  req.UserID,
		Tokens:  req.Tokens,
		Request: req.Payload,
		Model:   req.ModelID,
	}
	newBalance, err := s.store.ChargeAndRecord(ctx, cost, record)
	if err != nil {
		if errors.Is(err, hubdb.ErrInsufficientCredits) {
			metrics.ChargesTotal.WithLabelValues(req.ModelID, "declined").Inc()
			return nil, apperrors.PaymentRequiredError(ErrInsufficientFunds, "insufficient credits")
		}
		metrics.ChargesTotal.WithLabelValues(req.ModelID, "error").Inc()
		return nil, fmt.Errorf("failed to charge: %w", err)
	}

	metrics.ChargesTotal.WithLabelValues(req.ModelID, "charged").Inc()
	metrics.CreditsCharged.WithLabelValues(req.ModelID).Observe(float64(cost))

	return &ChargeResult{
		PubID:      record.PubID,
		Cost:       cost,
		NewBalance: newBalance,
	}, nil
}

// Refund returns a request's charge to its owner. Used when the hub
// confirms a dispatch failed; the recorded request keeps its row with
// credits_used zeroed so history and ledger stay consistent.
func (s *billingService) Refund(ctx context.Context, pubID, userID, modelID string, credits int64) (int64, error) {
	newBalance, err := s.store.RefundOrganicRequest(ctx, pubID, userID, credits)
	if err != nil {
		return 0, fmt.Errorf("failed to refund: %w", err)
	}

	metrics.RefundsTotal.WithLabelValues(modelID).Inc()
	s.logger.Info("Refunded charge",
		zap.String("pub_id", pubID),
		zap.String("user_id", userID),
		zap.Int64("credits", credits),
	)
	return newBalance, nil
}

// InitiateCheckout opens a hosted payment session for a credit purchase
// and records the pending session so the confirmation webhook can apply
// it exactly once.
func (s *billingService) InitiateCheckout(ctx context.Context, userID string, credits int64) (*Checkout, error) {
	if credits < s.minPurchaseCredits {
		return nil, apperrors.BadRequestError(ErrPurchaseTooSmall,
			fmt.Sprintf("minimum purchase is %d credits", s.minPurchaseCredits))
	}

	cents := s.pricing.CentsForCredits(credits)
	checkout, err := s.provider.CreateCheckout(ctx, userID, credits, cents)
	if err != nil {
		return nil, apperrors.DependencyError(err, "payment provider unavailable")
	}

	err = s.store.CreateCheckoutSession(ctx, &schema.CheckoutSession{
		ID:      checkout.ID,
		UserID:  userID,
		Credits: credits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record checkout session: %w", err)
	}

	s.logger.Info("Checkout initiated",
		zap.String("user_id", userID),
		zap.Int64("credits", credits),
		zap.Int64("amount_usd_cents", cents),
	)
	return checkout, nil
}

// ApplyPurchase grants a confirmed purchase's credits exactly once. A
// replayed confirmation is reported, not failed: the webhook caller acks
// it and the balance stays put.
func (s *billingService) ApplyPurchase(ctx context.Context, checkoutID string) (*PurchaseResult, error) {
	userID, credits, newBalance, err := s.store.ApplyPurchase(ctx, checkoutID)
	if err != nil {
		switch {
		case errors.Is(err, hubdb.ErrCheckoutAlreadyApplied):
			metrics.PurchasesTotal.WithLabelValues("replayed").Inc()
			return &PurchaseResult{Replayed: true}, nil
		case errors.Is(err, hubdb.ErrCheckoutNotFound):
			metrics.PurchasesTotal.WithLabelValues("unknown").Inc()
			return nil, apperrors.ResourceNotFoundError(ErrUnknownCheckout, "unknown checkout session")
		}
		return nil, fmt.Errorf("failed to apply purchase: %w", err)
	}

	metrics.PurchasesTotal.WithLabelValues("applied").Inc()
	metrics.CreditsPurchased.Observe(float64(credits))

	return &PurchaseResult{
		UserID:     userID,
		Credits:    credits,
		NewBalance: newBalance,
	}, nil
}
