// AngelaMos | 2026
// client_test.go

package genai

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/personaforge/internal/config"
)

func newTestClient(baseURL string) Client {
	return NewClient(config.GenerationConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Model:     "test-model",
		MaxTokens: 512,
		Timeout:   5 * time.Second,
	}, slog.New(slog.DiscardHandler))
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"content": content},
				"finish_reason": "stop",
			},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/chat/completions", r.URL.Path)

			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Header().Set("Content-Type", "application/json")
			//nolint:errcheck // test server
			_, _ = w.Write([]byte(completionBody(`{"ok": true}`)))
		}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	out, err := client.Complete(
		t.Context(), "system prompt", "user prompt", 256)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 256, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "system prompt", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestCompleteUpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
		}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Complete(t.Context(), "s", "u", 256)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			//nolint:errcheck // test server
			_, _ = w.Write([]byte(`{"choices": []}`))
		}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Complete(t.Context(), "s", "u", 256)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
}

func TestCompleteBlankCompletionIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			//nolint:errcheck // test server
			_, _ = w.Write([]byte(completionBody("   ")))
		}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Complete(t.Context(), "s", "u", 256)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
}

func TestCompleteDoesNotRetry(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Complete(t.Context(), "s", "u", 256)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(),
		"completions are billable and must not be retried")
}

func TestCompleteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Complete(t.Context(), "s", "u", 256)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}
