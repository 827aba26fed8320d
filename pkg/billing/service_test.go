package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
)

type mockStore struct {
	getModel              func(ctx context.Context, id string) (*schema.Model, error)
	getCredits            func(ctx context.Context, userID string) (int64, error)
	chargeAndRecord       func(ctx context.Context, cost int64, req *schema.OrganicRequest) (int64, error)
	refundOrganicRequest  func(ctx context.Context, pubID, userID string, credits int64) (int64, error)
	createCheckoutSession func(ctx context.Context, cs *schema.CheckoutSession) error
	applyPurchase         func(ctx context.Context, checkoutID string) (string, int64, int64, error)
}

func (m *mockStore) GetModel(ctx context.Context, id string) (*schema.Model, error) {
	return m.getModel(ctx, id)
}
func (m *mockStore) GetCredits(ctx context.Context, userID string) (int64, error) {
	return m.getCredits(ctx, userID)
}
func (m *mockStore) ChargeAndRecord(ctx context.Context, cost int64, req *schema.OrganicRequest) (int64, error) {
	return m.chargeAndRecord(ctx, cost, req)
}
func (m *mockStore) RefundOrganicRequest(ctx context.Context, pubID, userID string, credits int64) (int64, error) {
	return m.refundOrganicRequest(ctx, pubID, userID, credits)
}
func (m *mockStore) CreateCheckoutSession(ctx context.Context, cs *schema.CheckoutSession) error {
	return m.createCheckoutSession(ctx, cs)
}
func (m *mockStore) ApplyPurchase(ctx context.Context, checkoutID string) (string, int64, int64, error) {
	return m.applyPurchase(ctx, checkoutID)
}

type mockProvider struct {
	createCheckout func(ctx context.Context, userID string, credits, cents int64) (*Checkout, error)
}

func (m *mockProvider) CreateCheckout(ctx context.Context, userID string, credits, cents int64) (*Checkout, error) {
	return m.createCheckout(ctx, userID, credits, cents)
}

// ledgerStore simulates a user balance behind the charge path.
func ledgerStore(t *testing.T, cpt, balance int64) (*mockStore, *int64) {
	t.Helper()
	bal := balance
	store := &mockStore{
		getModel: func(_ context.Context, id string) (*schema.Model, error) {
			return &schema.Model{ID: id, CPT: cpt, Enabled: true}, nil
		},
		chargeAndRecord: func(_ context.Context, cost int64, req *schema.OrganicRequest) (int64, error) {
			if bal < cost {
				return 0, hubdb.ErrInsufficientCredits
			}
			bal -= cost
			req.CreditsUsed = cost
			return bal, nil
		},
	}
	return store, &bal
}

func TestBillingService_ChargeForRequest(t *testing.T) {
	ctx := context.Background()
	payload := json.RawMessage(`{"messages":[]}`)

	t.Run("charges token budget times model price", func(t *testing.T) {
		store, balance := ledgerStore(t, 2, 100)
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		result, err := svc.ChargeForRequest(ctx, &ChargeRequest{
			UserID: "u_1", ModelID: "test/model-8b", Tokens: 30, Payload: payload,
		})
		if err != nil {
			t.Fatalf("ChargeForRequest() failed: %v", err)
		}
		if result.Cost != 60 {
			t.Errorf("cost = %d, want 60", result.Cost)
		}
		if result.NewBalance != 40 {
			t.Errorf("new balance = %d, want 40", result.NewBalance)
		}
		if result.PubID == "" {
			t.Error("no pub id assigned")
		}

		// A follow-up the remaining balance cannot cover is declined and
		// the balance stays put.
		_, err = svc.ChargeForRequest(ctx, &ChargeRequest{
			UserID: "u_1", ModelID: "test/model-8b", Tokens: 25, Payload: payload,
		})
		if !apperrors.Is(err, apperrors.CategoryPaymentRequired) {
			t.Fatalf("expected CategoryPaymentRequired, got %v", err)
		}
		if *balance != 40 {
			t.Errorf("balance after declined charge = %d, want 40", *balance)
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		store := &mockStore{
			getModel: func(context.Context, string) (*schema.Model, error) {
				return nil, hubdb.ErrModelNotFound
			},
		}
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		_, err := svc.ChargeForRequest(ctx, &ChargeRequest{
			UserID: "u_1", ModelID: "test/missing", Tokens: 10, Payload: payload,
		})
		if !apperrors.Is(err, apperrors.CategoryResourceNotFound) {
			t.Fatalf("expected CategoryResourceNotFound, got %v", err)
		}
	})

	t.Run("disabled model", func(t *testing.T) {
		store := &mockStore{
			getModel: func(_ context.Context, id string) (*schema.Model, error) {
				return &schema.Model{ID: id, CPT: 2, Enabled: false}, nil
			},
		}
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		_, err := svc.ChargeForRequest(ctx, &ChargeRequest{
			UserID: "u_1", ModelID: "test/model-8b", Tokens: 10, Payload: payload,
		})
		if !errors.Is(err, ErrModelDisabled) {
			t.Fatalf("expected ErrModelDisabled, got %v", err)
		}
	})

	t.Run("non-positive token budget", func(t *testing.T) {
		svc := NewService(&mockStore{}, nil, zap.NewNop(), NewPricing(10000), 100000)
		_, err := svc.ChargeForRequest(ctx, &ChargeRequest{
			UserID: "u_1", ModelID: "test/model-8b", Tokens: 0, Payload: payload,
		})
		if !apperrors.Is(err, apperrors.CategoryDataError) {
			t.Fatalf("expected CategoryDataError, got %v", err)
		}
	})
}

func TestBillingService_InitiateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("records the pending session", func(t *testing.T) {
		var recorded *schema.CheckoutSession
		store := &mockStore{
			createCheckoutSession: func(_ context.Context, cs *schema.CheckoutSession) error {
				recorded = cs
				return nil
			},
		}
		var gotCents int64
		provider := &mockProvider{
			createCheckout: func(_ context.Context, _ string, _, cents int64) (*Checkout, error) {
				gotCents = cents
				return &Checkout{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
			},
		}
		svc := NewService(store, provider, zap.NewNop(), NewPricing(10000), 100000)

		checkout, err := svc.InitiateCheckout(ctx, "u_1", 150000)
		if err != nil {
			t.Fatalf("InitiateCheckout() failed: %v", err)
		}
		if checkout.URL == "" {
			t.Error("no checkout url returned")
		}
		// 150000 credits at 10000 credits per cent is 15 cents.
		if gotCents != 15 {
			t.Errorf("amount = %d cents, want 15", gotCents)
		}
		if recorded == nil || recorded.ID != "cs_test_1" || recorded.Credits != 150000 {
			t.Errorf("recorded session = %+v, want id cs_test_1 credits 150000", recorded)
		}
		if recorded.AppliedAt != nil {
			t.Error("new session must start unapplied")
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		svc := NewService(&mockStore{}, &mockProvider{}, zap.NewNop(), NewPricing(10000), 100000)
		_, err := svc.InitiateCheckout(ctx, "u_1", 50)
		if !errors.Is(err, ErrPurchaseTooSmall) {
			t.Fatalf("expected ErrPurchaseTooSmall, got %v", err)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &mockProvider{
			createCheckout: func(context.Context, string, int64, int64) (*Checkout, error) {
				return nil, errors.New("stripe is down")
			},
		}
		svc := NewService(&mockStore{}, provider, zap.NewNop(), NewPricing(10000), 100000)
		_, err := svc.InitiateCheckout(ctx, "u_1", 150000)
		if !apperrors.Is(err, apperrors.CategoryDependencyFailure) {
			t.Fatalf("expected CategoryDependencyFailure, got %v", err)
		}
	})
}

func TestBillingService_ApplyPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("applied", func(t *testing.T) {
		store := &mockStore{
			applyPurchase: func(_ context.Context, checkoutID string) (string, int64, int64, error) {
				if checkoutID != "cs_1" {
					return "", 0, 0, hubdb.ErrCheckoutNotFound
				}
				return "u_1", 500, 600, nil
			},
		}
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		result, err := svc.ApplyPurchase(ctx, "cs_1")
		if err != nil {
			t.Fatalf("ApplyPurchase() failed: %v", err)
		}
		if result.Replayed {
			t.Error("fresh purchase reported as replayed")
		}
		if result.Credits != 500 || result.NewBalance != 600 {
			t.Errorf("result = %+v, want credits 500 balance 600", result)
		}
	})

	t.Run("replay is a quiet no-op", func(t *testing.T) {
		store := &mockStore{
			applyPurchase: func(context.Context, string) (string, int64, int64, error) {
				return "", 0, 0, hubdb.ErrCheckoutAlreadyApplied
			},
		}
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		result, err := svc.ApplyPurchase(ctx, "cs_1")
		if err != nil {
			t.Fatalf("ApplyPurchase() replay failed: %v", err)
		}
		if !result.Replayed {
			t.Error("replay not reported")
		}
	})

	t.Run("unknown checkout", func(t *testing.T) {
		store := &mockStore{
			applyPurchase: func(context.Context, string) (string, int64, int64, error) {
				return "", 0, 0, hubdb.ErrCheckoutNotFound
			},
		}
		svc := NewService(store, nil, zap.NewNop(), NewPricing(10000), 100000)

		_, err := svc.ApplyPurchase(ctx, "cs_missing")
		if !apperrors.Is(err, apperrors.CategoryResourceNotFound) {
			t.Fatalf("expected CategoryResourceNotFound, got %v", err)
		}
	})
}

func TestPricing(t *testing.T) {
	p := NewPricing(10000)

	tests := []struct {
		credits   int64
		wantCents int64
	}{
		{10000, 1},
		{150000, 15},
		// Partial cents round up so the purchase never underpays.
		{10001, 2},
		{1, 1},
	}
	for _, tt := range tests {
		if got := p.CentsForCredits(tt.credits); got != tt.wantCents {
			t.Errorf("CentsForCredits(%d) = %d, want %d", tt.credits, got, tt.wantCents)
		}
	}

	if got := p.CreditsForCents(15); got != 150000 {
		t.Errorf("CreditsForCents(15) = %d, want 150000", got)
	}
}
