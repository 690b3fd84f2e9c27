package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pario-ai/sous/pkg/config"
	"github.com/pario-ai/sous/pkg/models"
)

func newTestClient(t *testing.T, upstream *httptest.Server, typ string) *Client {
	t.Helper()
	c, err := NewClient(config.AIConfig{
		Provider:  config.ProviderConfig{Name: "test", URL: upstream.URL, APIKey: "sk-provider", Type: typ},
		Model:     "flash",
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerateOpenAI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-provider" {
			t.Error("expected provider API key in upstream request")
		}
		var req models.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "flash" || len(req.Messages) != 1 || req.Messages[0].Content != "describe pasta" {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			Model: "flash",
			Choices: []models.Choice{
				{Message: models.ChatMessage{Role: "assistant", Content: "Silky ribbons."}},
			},
			Usage: &models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer upstream.Close()

	out, err := newTestClient(t, upstream, "openai").Generate(context.Background(), "describe pasta")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "Silky ribbons." {
		t.Errorf("unexpected text %q", out.Text)
	}
	if out.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 tokens, got %d", out.Usage.TotalTokens)
	}
}

func TestGenerateAnthropic(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-provider" {
			t.Error("expected x-api-key header")
		}
		_ = json.NewEncoder(w).Encode(models.AnthropicResponse{
			Model:   "claude",
			Content: []models.AnthropicContent{{Type: "text", Text: "Positive"}},
			Usage:   &models.AnthropicUsage{InputTokens: 7, OutputTokens: 1},
		})
	}))
	defer upstream.Close()

	out, err := newTestClient(t, upstream, "anthropic").Generate(context.Background(), "classify")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "Positive" || out.Usage.TotalTokens != 8 {
		t.Errorf("unexpected completion %+v", out)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"server error", http.StatusInternalServerError, `boom`, ErrProvider},
		{"bad request", http.StatusBadRequest, `nope`, ErrProvider},
		{"malformed body", http.StatusOK, `not json`, ErrProvider},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer upstream.Close()

			_, err := newTestClient(t, upstream, "openai").Generate(context.Background(), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrProvider) {
				t.Errorf("every failure should wrap ErrProvider, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected exactly one call (no retries), got %d", calls.Load())
			}
		})
	}
}

func TestGenerateNetworkError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, upstream, "openai")
	upstream.Close()

	if _, err := c.Generate(context.Background(), "x"); !errors.Is(err, ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(config.AIConfig{}); err == nil {
		t.Error("expected error for missing URL")
	}
}
