// AngelaMos | 2026
// client.go

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/angelamos/personaforge/internal/config"
)

var (
	ErrTimeout          = errors.New("generation timed out")
	ErrTransport        = errors.New("generation transport error")
	ErrUpstreamRejected = errors.New("generation rejected by upstream")
)

// Client is the text-completion capability consumed by the persona
// orchestrator. Implementations must not retry: completions are billable
// and retry policy belongs to the caller.
type Client interface {
	Complete(
		ctx context.Context,
		system, user string,
		maxTokens int,
	) (string, error)
}

type client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.GenerationConfig, logger *slog.Logger) Client {
	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "genai"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *client) Complete(
	ctx context.Context,
	system, user string,
	maxTokens int,
) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/chat/completions",
		&buf,
	)
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("complete: %w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("complete: %w: %v", ErrTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side closed below

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("complete: %w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("upstream completion rejected",
			"status", resp.StatusCode,
			"model", c.model,
			"duration", time.Since(start).String(),
		)
		return "", fmt.Errorf(
			"complete: %w: http %d: %s",
			ErrUpstreamRejected,
			resp.StatusCode,
			truncate(string(raw), 256),
		)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("complete: %w: decode: %v", ErrTransport, err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("complete: %w: empty choices", ErrUpstreamRejected)
	}

	text := parsed.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("complete: %w: empty completion", ErrUpstreamRejected)
	}

	c.logger.Debug("completion finished",
		"model", c.model,
		"finish_reason", parsed.Choices[0].FinishReason,
		"duration", time.Since(start).String(),
	)

	return text, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
