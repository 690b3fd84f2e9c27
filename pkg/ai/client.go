// Package ai wraps the single outbound call to the generative model.
//
// A Client performs exactly one HTTP request per Generate call and never
// retries: callers fall back immediately on any error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pario-ai/sous/pkg/config"
	"github.com/pario-ai/sous/pkg/models"
)

// Sentinel errors. Every failure from Generate wraps ErrProvider.
var (
	ErrProvider      = errors.New("ai: provider call failed")
	ErrRateLimited   = fmt.Errorf("%w: rate limited by provider", ErrProvider)
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrProvider)
)

// Completion is the raw text returned by the model.
type Completion struct {
	Text  string
	Model string
	Usage models.Usage
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (Completion, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (Completion, error) {
	return f(ctx, prompt)
}

// Client calls an OpenAI-compatible or Anthropic-compatible endpoint.
type Client struct {
	provider   config.ProviderConfig
	model      string
	maxTokens  int
	httpClient *http.Client
}

var _ Generator = (*Client)(nil)

// NewClient creates a Client from the AI section of the config.
func NewClient(cfg config.AIConfig) (*Client, error) {
	if _, err := url.Parse(cfg.Provider.URL); err != nil || cfg.Provider.URL == "" {
		return nil, fmt.Errorf("invalid provider URL %q", cfg.Provider.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		provider:   cfg.Provider,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (Completion, error) {
	if c.provider.Type == "anthropic" {
		return c.generateAnthropic(ctx, prompt)
	}
	return c.generateOpenAI(ctx, prompt)
}

func (c *Client) generateOpenAI(ctx context.Context, prompt string) (Completion, error) {
	req := models.ChatCompletionRequest{
		Model:    c.model,
		Messages: []models.ChatMessage{{Role: "user", Content: prompt}},
	}
	if c.maxTokens > 0 {
		req.MaxTokens = &c.maxTokens
	}
	headers := map[string]string{}
	if c.provider.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.provider.APIKey
	}

	body, err := c.post(ctx, "/v1/chat/completions", headers, req)
	if err != nil {
		return Completion{}, err
	}

	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	out := Completion{Text: resp.Text(), Model: resp.Model}
	if resp.Usage != nil {
		out.Usage = *resp.Usage
	}
	if strings.TrimSpace(out.Text) == "" {
		return Completion{}, ErrEmptyResponse
	}
	return out, nil
}

func (c *Client) generateAnthropic(ctx context.Context, prompt string) (Completion, error) {
	maxTokens := c.maxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	req := models.AnthropicRequest{
		Model:     c.model,
		Messages:  []models.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	headers := map[string]string{
		"anthropic-version": "2023-06-01",
	}
	if c.provider.APIKey != "" {
		headers["x-api-key"] = c.provider.APIKey
	}

	body, err := c.post(ctx, "/v1/messages", headers, req)
	if err != nil {
		return Completion{}, err
	}

	var resp models.AnthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	out := Completion{Text: resp.Text(), Model: resp.Model}
	if resp.Usage != nil {
		out.Usage = *resp.Usage.ToUsage()
	}
	if strings.TrimSpace(out.Text) == "" {
		return Completion{}, ErrEmptyResponse
	}
	return out, nil
}

// post sends one JSON request and returns the body of a 2xx response.
func (c *Client) post(ctx context.Context, path string, headers map[string]string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.provider.URL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrProvider, c.provider.Name, resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
