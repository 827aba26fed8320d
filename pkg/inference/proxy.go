package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminet/hub-api/internal/metrics"
	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/billing"
)

// defaultTokenBudget is charged when the request carries no max_tokens.
const defaultTokenBudget = 512

// Dispatcher sends a request to the inference hub.
type Dispatcher interface {
	ChatCompletion(ctx context.Context, payload json.RawMessage, attemptID string) (*ChatCompletionResult, error)
}

// Recorder persists dispatch outcomes onto the recorded request.
type Recorder interface {
	FinalizeOrganicRequest(
		ctx context.Context,
		pubID string,
		response *string,
		tokens int64,
		attempt *string,
		uid *int,
		hotkey, coldkey, minerAddress *string,
	) error
}

// Service defines the interface for the inference proxy.
type Service interface {
	ChatCompletion(ctx context.Context, userID string, payload json.RawMessage) (json.RawMessage, error)
}

type proxyService struct {
	billing         billing.Service
	dispatcher      Dispatcher
	recorder        Recorder
	logger          *zap.Logger
	refundOnFailure bool
}

// NewService creates the proxy. refundOnFailure controls the policy for
// confirmed hub failures; timeouts never refund because the outcome is
// unknown and reconciliation owns those.
func NewService(
	billingSvc billing.Service,
	dispatcher Dispatcher,
	recorder Recorder,
	logger *zap.Logger,
	refundOnFailure bool,
) Service {
	return &proxyService{
		billing:         billingSvc,
		dispatcher:      dispatcher,
		recorder:        recorder,
		logger:          logger,
		refundOnFailure: refundOnFailure,
	}
}

// chatRequest is the subset of the payload the proxy itself reads; the
// rest passes through to the hub untouched.
type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
}

// ChatCompletion charges the caller for the request's token budget, then
// dispatches it. The charge precedes the dispatch: a request that cannot
// be paid for never reaches the hub, and a recorded request always
// corresponds to an applied debit.
func (s *proxyService) ChatCompletion(ctx context.Context, userID string, payload json.RawMessage) (json.RawMessage, error) {
	var req chatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid JSON")
	}
	if req.Model == "" {
		return nil, apperrors.BadRequestError(nil, "model is required")
	}
	budget := req.MaxTokens
	if budget <= 0 {
		budget = defaultTokenBudget
	}

	charge, err := s.billing.ChargeForRequest(ctx, &billing.ChargeRequest{
		UserID:  userID,
		ModelID: req.Model,
		Tokens:  budget,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	start := time.Now()
	result, err := s.dispatcher.ChatCompletion(ctx, payload, attemptID)
	metrics.InferenceDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.handleDispatchFailure(ctx, charge, userID, req.Model, err)
	}

	metrics.InferenceRequestsTotal.WithLabelValues(req.Model, "ok").Inc()

	tokens := result.Tokens
	if tokens <= 0 {
		tokens = budget
	}
	response := result.Completion
	if response == "" {
		response = string(result.Body)
	}
	err = s.recorder.FinalizeOrganicRequest(ctx, charge.PubID,
		&response, tokens, &attemptID,
		result.UID, result.Hotkey, result.Coldkey, result.MinerAddress)
	if err != nil {
		// The user already has their answer; losing the outcome record is
		// an operator problem, not a request failure.
		s.logger.Error("Failed to finalize request record",
			zap.String("pub_id", charge.PubID),
			zap.Error(err),
		)
	}

	return result.Body, nil
}

// handleDispatchFailure maps a dispatch error to the charge policy. A
// timeout leaves the charge standing. A confirmed failure refunds when
// the policy says so.
func (s *proxyService) handleDispatchFailure(
	ctx context.Context,
	charge *billing.ChargeResult,
	userID, model string,
	dispatchErr error,
) error {
	if IsTimeout(dispatchErr) {
		metrics.InferenceRequestsTotal.WithLabelValues(model, "timeout").Inc()
		s.logger.Warn("Hub dispatch timed out, charge stands",
			zap.String("pub_id", charge.PubID),
			zap.String("model", model),
		)
		return apperrors.TimeoutError(dispatchErr, "inference request timed out")
	}

	metrics.InferenceRequestsTotal.WithLabelValues(model, "upstream_error").Inc()

	if s.refundOnFailure {
		if _, err := s.billing.Refund(ctx, charge.PubID, userID, model, charge.Cost); err != nil {
			s.logger.Error("Failed to refund after confirmed hub failure",
				zap.String("pub_id", charge.PubID),
				zap.Error(err),
			)
		}
	}

	var hubErr *HubError
	if errors.As(dispatchErr, &hubErr) {
		return apperrors.DependencyError(dispatchErr,
			fmt.Sprintf("inference hub rejected the request (status %d)", hubErr.StatusCode))
	}
	return apperrors.DependencyError(dispatchErr, "inference hub unavailable")
}
