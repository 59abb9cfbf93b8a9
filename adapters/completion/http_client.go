// Package completion talks to an OpenAI-compatible chat completion
// gateway and exposes its streamed response body.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

// DefaultTimeout bounds the whole streamed exchange so a stalled upstream
// eventually surfaces as a transport failure instead of blocking forever.
const DefaultTimeout = 2 * time.Minute

// Config configures the completion client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClient implements the CompletionClient interface over HTTP.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient creates a completion client for an OpenAI-compatible
// endpoint.
func NewHTTPClient(cfg Config) ports.CompletionClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type completionRequest struct {
	Model    string             `json:"model"`
	Messages []core.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

// StreamCompletion opens a streamed completion and returns the raw
// event-stream body. Upstream status codes map to the distinct chat error
// kinds so callers can present different messaging for rate limits,
// exhausted credits and generic upstream failures.
func (c *HTTPClient) StreamCompletion(ctx context.Context, req ports.CompletionRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(completionRequest{
		Model:    c.cfg.Model,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %v: %w", err, core.ErrTransport)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, core.ErrRateLimited
	case http.StatusPaymentRequired:
		resp.Body.Close()
		return nil, core.ErrQuotaExhausted
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("upstream returned %d: %s: %w", resp.StatusCode, detail, core.ErrUpstreamService)
	}
}
