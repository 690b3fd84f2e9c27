package models

import "time"

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CallOutcome is how an outbound AI call ended.
type CallOutcome string

const (
	OutcomeOK            CallOutcome = "ok"
	OutcomeProviderError CallOutcome = "provider_error"
	OutcomeParseError    CallOutcome = "parse_error"
)

// UsageRecord tracks a single outbound AI call.
type UsageRecord struct {
	ID               int64       `json:"id"`
	RequestID        string      `json:"request_id"`
	Feature          Feature     `json:"feature"`
	Identifier       string      `json:"identifier,omitempty"`
	Model            string      `json:"model"`
	Outcome          CallOutcome `json:"outcome"`
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	TotalTokens      int         `json:"total_tokens"`
	LatencyMs        int64       `json:"latency_ms"`
	CreatedAt        time.Time   `json:"created_at"`
}

// UsageSummary aggregates calls per feature and outcome.
type UsageSummary struct {
	Feature      Feature     `json:"feature"`
	Outcome      CallOutcome `json:"outcome"`
	RequestCount int         `json:"request_count"`
	TotalTokens  int64       `json:"total_tokens"`
	AvgLatencyMs int64       `json:"avg_latency_ms"`
}
