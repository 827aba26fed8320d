package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luminet/hub-api/pkg/config"
)

func newTestHubClient(endpoint string, timeout time.Duration) *HubClient {
	return NewHubClient(&config.HubConfig{
		Endpoint:       endpoint,
		SecretToken:    "hub-secret",
		RequestTimeout: timeout,
	}, zap.NewNop())
}

func TestHubClient_ChatCompletion(t *testing.T) {
	payload := json.RawMessage(`{"model":"test/model-8b","messages":[]}`)

	t.Run("parses the completion envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer hub-secret", r.Header.Get("Authorization"))
			assert.Equal(t, "att-1", r.Header.Get("X-Attempt-Id"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"choices":[{"message":{"content":"the answer"}}],
				"usage":{"completion_tokens":21},
				"uid":17,
				"hotkey":"hk-miner-1"
			}`)) //nolint:errcheck
		}))
		defer srv.Close()

		client := newTestHubClient(srv.URL, 5*time.Second)
		result, err := client.ChatCompletion(context.Background(), payload, "att-1")
		require.NoError(t, err)

		assert.Equal(t, "the answer", result.Completion)
		assert.Equal(t, int64(21), result.Tokens)
		require.NotNil(t, result.UID)
		assert.Equal(t, 17, *result.UID)
		require.NotNil(t, result.Hotkey)
		assert.Equal(t, "hk-miner-1", *result.Hotkey)
		assert.NotEmpty(t, result.Body)
	})

	t.Run("unparseable body still relays", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("data: not json at all")) //nolint:errcheck
		}))
		defer srv.Close()

		client := newTestHubClient(srv.URL, 5*time.Second)
		result, err := client.ChatCompletion(context.Background(), payload, "att-1")
		require.NoError(t, err)

		assert.Equal(t, "data: not json at all", string(result.Body))
		assert.Empty(t, result.Completion)
		assert.Zero(t, result.Tokens)
	})

	t.Run("non-2xx is a confirmed hub error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "no miners available", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := newTestHubClient(srv.URL, 5*time.Second)
		_, err := client.ChatCompletion(context.Background(), payload, "att-1")

		var hubErr *HubError
		require.True(t, errors.As(err, &hubErr))
		assert.Equal(t, http.StatusServiceUnavailable, hubErr.StatusCode)
		assert.Contains(t, hubErr.Body, "no miners available")
		assert.False(t, IsTimeout(err))
	})

	t.Run("slow hub is a timeout", func(t *testing.T) {
		blocked := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			<-blocked
		}))
		defer srv.Close()
		defer close(blocked)

		client := newTestHubClient(srv.URL, 50*time.Millisecond)
		_, err := client.ChatCompletion(context.Background(), payload, "att-1")

		require.Error(t, err)
		assert.True(t, IsTimeout(err))
	})
}
