// Package inference proxies user requests to the inference hub: charge
// first, dispatch second, record the outcome. The hub is an opaque,
// unreliable HTTP backend; every call carries a deadline and failure is a
// normal outcome here, not an exception.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/luminet/hub-api/pkg/config"
)

// HubError is a confirmed upstream failure: the hub answered, and the
// answer was an error. Distinct from a timeout, where the outcome is
// unknown.
type HubError struct {
	StatusCode int
	Body       string
}

func (e *HubError) Error() string {
	return fmt.Sprintf("hub returned status %d: %s", e.StatusCode, e.Body)
}

// ChatCompletionResult is one completed dispatch: the raw body to relay
// and the fields the accounting layer cares about.
type ChatCompletionResult struct {
	Body       json.RawMessage
	Completion string
	Tokens     int64

	// Serving miner identity, when the hub reports it.
	UID          *int
	Hotkey       *string
	Coldkey      *string
	MinerAddress *string
}

// HubClient is the HTTP client for the inference hub.
type HubClient struct {
	endpoint    string
	secretToken string
	client      *http.Client
	logger      *zap.Logger
}

// NewHubClient creates a hub client from config. The configured request
// timeout bounds every dispatch.
func NewHubClient(cfg *config.HubConfig, logger *zap.Logger) *HubClient {
	return &HubClient{
		endpoint:    cfg.Endpoint,
		secretToken: cfg.SecretToken,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		logger:      logger,
	}
}

// hubResponse mirrors the hub's completion envelope. Fields the hub omits
// stay nil; the caller tolerates partial answers.
type hubResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	UID          *int    `json:"uid"`
	Hotkey       *string `json:"hotkey"`
	Coldkey      *string `json:"coldkey"`
	MinerAddress *string `json:"miner_address"`
}

// ChatCompletion dispatches one request to the hub. attemptID tags the
// dispatch so hub-side logs can be matched to the recorded request.
func (c *HubClient) ChatCompletion(ctx context.Context, payload json.RawMessage, attemptID string) (*ChatCompletionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretToken)
	req.Header.Set("X-Attempt-Id", attemptID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call hub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read hub response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HubError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	result := &ChatCompletionResult{Body: body}
	var parsed hubResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// The relay still works with a body we cannot parse; accounting
		// falls back to the charged budget.
		c.logger.Warn("Unparseable hub response body", zap.Error(err))
		return result, nil
	}
	if len(parsed.Choices) > 0 {
		result.Completion = parsed.Choices[0].Message.Content
	}
	result.Tokens = parsed.Usage.CompletionTokens
	result.UID = parsed.UID
	result.Hotkey = parsed.Hotkey
	result.Coldkey = parsed.Coldkey
	result.MinerAddress = parsed.MinerAddress
	return result, nil
}

// IsTimeout reports whether a dispatch error is a timeout, where the
// request's true outcome is unknown.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
