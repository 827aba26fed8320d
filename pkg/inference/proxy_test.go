package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/billing"
)

type mockBilling struct {
	chargeForRequest func(ctx context.Context, req *billing.ChargeRequest) (*billing.ChargeResult, error)
	refund           func(ctx context.Context, pubID, userID, modelID string, credits int64) (int64, error)
}

func (m *mockBilling) Balance(context.Context, string) (int64, error) { return 0, nil }
func (m *mockBilling) ChargeForRequest(ctx context.Context, req *billing.ChargeRequest) (*billing.ChargeResult, error) {
	return m.chargeForRequest(ctx, req)
}
func (m *mockBilling) Refund(ctx context.Context, pubID, userID, modelID string, credits int64) (int64, error) {
	return m.refund(ctx, pubID, userID, modelID, credits)
}
func (m *mockBilling) InitiateCheckout(context.Context, string, int64) (*billing.Checkout, error) {
	return nil, nil
}
func (m *mockBilling) ApplyPurchase(context.Context, string) (*billing.PurchaseResult, error) {
	return nil, nil
}

type mockDispatcher struct {
	chatCompletion func(ctx context.Context, payload json.RawMessage, attemptID string) (*ChatCompletionResult, error)
}

func (m *mockDispatcher) ChatCompletion(ctx context.Context, payload json.RawMessage, attemptID string) (*ChatCompletionResult, error) {
	return m.chatCompletion(ctx, payload, attemptID)
}

type finalizeCall struct {
	pubID    string
	response string
	tokens   int64
}

type mockRecorder struct {
	calls []finalizeCall
	err   error
}

func (m *mockRecorder) FinalizeOrganicRequest(
	_ context.Context,
	pubID string,
	response *string,
	tokens int64,
	_ *string,
	_ *int,
	_, _, _ *string,
) error {
	call := finalizeCall{pubID: pubID, tokens: tokens}
	if response != nil {
		call.response = *response
	}
	m.calls = append(m.calls, call)
	return m.err
}

func acceptingBilling(t *testing.T, wantTokens int64) (*mockBilling, *int) {
	t.Helper()
	refunds := 0
	b := &mockBilling{
		chargeForRequest: func(_ context.Context, req *billing.ChargeRequest) (*billing.ChargeResult, error) {
			if wantTokens > 0 && req.Tokens != wantTokens {
				t.Errorf("charged tokens = %d, want %d", req.Tokens, wantTokens)
			}
			return &billing.ChargeResult{PubID: "oreq_1", Cost: req.Tokens * 2, NewBalance: 40}, nil
		},
		refund: func(_ context.Context, pubID, _, _ string, _ int64) (int64, error) {
			refunds++
			if pubID != "oreq_1" {
				t.Errorf("refunded pub id = %q, want oreq_1", pubID)
			}
			return 100, nil
		},
	}
	return b, &refunds
}

func TestProxy_ChatCompletion(t *testing.T) {
	ctx := context.Background()
	payload := json.RawMessage(`{"model":"test/model-8b","max_tokens":30,"messages":[]}`)

	t.Run("charges budget then relays the hub body", func(t *testing.T) {
		billingMock, refunds := acceptingBilling(t, 30)
		hubBody := json.RawMessage(`{"choices":[{"message":{"content":"hi"}}],"usage":{"completion_tokens":12}}`)
		dispatcher := &mockDispatcher{
			chatCompletion: func(_ context.Context, _ json.RawMessage, attemptID string) (*ChatCompletionResult, error) {
				if attemptID == "" {
					t.Error("no attempt id assigned")
				}
				return &ChatCompletionResult{Body: hubBody, Completion: "hi", Tokens: 12}, nil
			},
		}
		recorder := &mockRecorder{}
		svc := NewService(billingMock, dispatcher, recorder, zap.NewNop(), true)

		body, err := svc.ChatCompletion(ctx, "u_1", payload)
		if err != nil {
			t.Fatalf("ChatCompletion() failed: %v", err)
		}
		if string(body) != string(hubBody) {
			t.Errorf("relayed body = %s, want hub body", body)
		}
		if len(recorder.calls) != 1 {
			t.Fatalf("finalize calls = %d, want 1", len(recorder.calls))
		}
		if recorder.calls[0].tokens != 12 {
			t.Errorf("finalized tokens = %d, want 12 (hub usage)", recorder.calls[0].tokens)
		}
		if recorder.calls[0].response != "hi" {
			t.Errorf("finalized response = %q, want hi", recorder.calls[0].response)
		}
		if *refunds != 0 {
			t.Errorf("refunds = %d, want 0", *refunds)
		}
	})

	t.Run("declined charge never reaches the hub", func(t *testing.T) {
		billingMock := &mockBilling{
			chargeForRequest: func(context.Context, *billing.ChargeRequest) (*billing.ChargeResult, error) {
				return nil, apperrors.PaymentRequiredError(nil, "insufficient credits")
			},
		}
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				t.Error("dispatched despite declined charge")
				return nil, nil
			},
		}
		svc := NewService(billingMock, dispatcher, &mockRecorder{}, zap.NewNop(), true)

		_, err := svc.ChatCompletion(ctx, "u_1", payload)
		if !apperrors.Is(err, apperrors.CategoryPaymentRequired) {
			t.Fatalf("expected CategoryPaymentRequired, got %v", err)
		}
	})

	t.Run("confirmed hub failure refunds under the policy", func(t *testing.T) {
		billingMock, refunds := acceptingBilling(t, 30)
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				return nil, &HubError{StatusCode: 503, Body: "no miners available"}
			},
		}
		svc := NewService(billingMock, dispatcher, &mockRecorder{}, zap.NewNop(), true)

		_, err := svc.ChatCompletion(ctx, "u_1", payload)
		if !apperrors.Is(err, apperrors.CategoryDependencyFailure) {
			t.Fatalf("expected CategoryDependencyFailure, got %v", err)
		}
		if *refunds != 1 {
			t.Errorf("refunds = %d, want 1", *refunds)
		}
	})

	t.Run("confirmed failure with refunds disabled keeps the charge", func(t *testing.T) {
		billingMock, refunds := acceptingBilling(t, 30)
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				return nil, &HubError{StatusCode: 500, Body: "boom"}
			},
		}
		svc := NewService(billingMock, dispatcher, &mockRecorder{}, zap.NewNop(), false)

		_, err := svc.ChatCompletion(ctx, "u_1", payload)
		if !apperrors.Is(err, apperrors.CategoryDependencyFailure) {
			t.Fatalf("expected CategoryDependencyFailure, got %v", err)
		}
		if *refunds != 0 {
			t.Errorf("refunds = %d, want 0", *refunds)
		}
	})

	t.Run("timeout keeps the charge even with refunds enabled", func(t *testing.T) {
		billingMock, refunds := acceptingBilling(t, 30)
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				return nil, context.DeadlineExceeded
			},
		}
		svc := NewService(billingMock, dispatcher, &mockRecorder{}, zap.NewNop(), true)

		_, err := svc.ChatCompletion(ctx, "u_1", payload)
		if !apperrors.Is(err, apperrors.CategoryConnectionTimeout) {
			t.Fatalf("expected CategoryConnectionTimeout, got %v", err)
		}
		if *refunds != 0 {
			t.Errorf("refunds = %d, want 0 on timeout", *refunds)
		}
	})

	t.Run("missing max_tokens falls back to the default budget", func(t *testing.T) {
		billingMock, _ := acceptingBilling(t, defaultTokenBudget)
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				return &ChatCompletionResult{Body: json.RawMessage(`{}`)}, nil
			},
		}
		svc := NewService(billingMock, dispatcher, &mockRecorder{}, zap.NewNop(), true)

		noBudget := json.RawMessage(`{"model":"test/model-8b","messages":[]}`)
		if _, err := svc.ChatCompletion(ctx, "u_1", noBudget); err != nil {
			t.Fatalf("ChatCompletion() failed: %v", err)
		}
	})

	t.Run("missing model is rejected before charging", func(t *testing.T) {
		billingMock := &mockBilling{
			chargeForRequest: func(context.Context, *billing.ChargeRequest) (*billing.ChargeResult, error) {
				t.Error("charged despite missing model")
				return nil, nil
			},
		}
		svc := NewService(billingMock, &mockDispatcher{}, &mockRecorder{}, zap.NewNop(), true)

		_, err := svc.ChatCompletion(ctx, "u_1", json.RawMessage(`{"messages":[]}`))
		if !apperrors.Is(err, apperrors.CategoryDataError) {
			t.Fatalf("expected CategoryDataError, got %v", err)
		}
	})

	t.Run("finalize failure does not fail the response", func(t *testing.T) {
		billingMock, _ := acceptingBilling(t, 30)
		dispatcher := &mockDispatcher{
			chatCompletion: func(context.Context, json.RawMessage, string) (*ChatCompletionResult, error) {
				return &ChatCompletionResult{Body: json.RawMessage(`{"ok":true}`)}, nil
			},
		}
		recorder := &mockRecorder{err: errors.New("db gone")}
		svc := NewService(billingMock, dispatcher, recorder, zap.NewNop(), true)

		body, err := svc.ChatCompletion(ctx, "u_1", payload)
		if err != nil {
			t.Fatalf("ChatCompletion() failed: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("body = %s, want the hub body", body)
		}
	})
}
