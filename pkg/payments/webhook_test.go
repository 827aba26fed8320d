package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/billing"
)

type mockBillingService struct {
	applyPurchase func(ctx context.Context, checkoutID string) (*billing.PurchaseResult, error)
}

func (m *mockBillingService) Balance(context.Context, string) (int64, error) { return 0, nil }
func (m *mockBillingService) ChargeForRequest(context.Context, *billing.ChargeRequest) (*billing.ChargeResult, error) {
	return nil, nil
}
func (m *mockBillingService) Refund(context.Context, string, string, string, int64) (int64, error) {
	return 0, nil
}
func (m *mockBillingService) InitiateCheckout(context.Context, string, int64) (*billing.Checkout, error) {
	return nil, nil
}
func (m *mockBillingService) ApplyPurchase(ctx context.Context, checkoutID string) (*billing.PurchaseResult, error) {
	return m.applyPurchase(ctx, checkoutID)
}

const testSecret = "whsec_testsecret"

// signPayload builds a Stripe-Signature header the way the provider does:
// HMAC-SHA256 over "<t>.<payload>".
func signPayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookServer(svc billing.Service) http.Handler {
	wh := NewWebhook(svc, testSecret, zap.NewNop())
	r := chi.NewRouter()
	wh.RegisterRoutes(r)
	return r
}

func postEvent(t *testing.T, handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_CheckoutCompleted(t *testing.T) {
	var applied string
	svc := &mockBillingService{
		applyPurchase: func(_ context.Context, checkoutID string) (*billing.PurchaseResult, error) {
			applied = checkoutID
			return &billing.PurchaseResult{UserID: "u_1", Credits: 500, NewBalance: 600}, nil
		},
	}
	handler := newWebhookServer(svc)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	rec := postEvent(t, handler, payload, signPayload(t, payload, testSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if applied != "cs_1" {
		t.Errorf("applied checkout = %q, want cs_1", applied)
	}
}

func TestWebhook_ReplayIsAcked(t *testing.T) {
	svc := &mockBillingService{
		applyPurchase: func(context.Context, string) (*billing.PurchaseResult, error) {
			return &billing.PurchaseResult{Replayed: true}, nil
		},
	}
	handler := newWebhookServer(svc)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	rec := postEvent(t, handler, payload, signPayload(t, payload, testSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestWebhook_UnknownSessionIsAcked(t *testing.T) {
	svc := &mockBillingService{
		applyPurchase: func(context.Context, string) (*billing.PurchaseResult, error) {
			return nil, apperrors.ResourceNotFoundError(nil, "unknown checkout session")
		},
	}
	handler := newWebhookServer(svc)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_gone"}}}`)
	rec := postEvent(t, handler, payload, signPayload(t, payload, testSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestWebhook_OtherEventTypesIgnored(t *testing.T) {
	svc := &mockBillingService{
		applyPurchase: func(context.Context, string) (*billing.PurchaseResult, error) {
			t.Error("ApplyPurchase called for an unrelated event type")
			return nil, nil
		},
	}
	handler := newWebhookServer(svc)

	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	rec := postEvent(t, handler, payload, signPayload(t, payload, testSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestWebhook_SignatureRejection(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)

	tests := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{"missing header", func(*testing.T) string { return "" }},
		{"wrong secret", func(t *testing.T) string {
			return signPayload(t, payload, "whsec_other", time.Now())
		}},
		{"tampered payload", func(t *testing.T) string {
			return signPayload(t, []byte(`{"id":"evt_2"}`), testSecret, time.Now())
		}},
		{"stale timestamp", func(t *testing.T) string {
			return signPayload(t, payload, testSecret, time.Now().Add(-10*time.Minute))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBillingService{
				applyPurchase: func(context.Context, string) (*billing.PurchaseResult, error) {
					t.Error("ApplyPurchase called despite rejected signature")
					return nil, nil
				},
			}
			handler := newWebhookServer(svc)

			rec := postEvent(t, handler, payload, tt.header(t))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d: %s",
					http.StatusUnauthorized, rec.Code, rec.Body.String())
			}
		})
	}
}
