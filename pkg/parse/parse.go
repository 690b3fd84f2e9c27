// Package parse extracts structured values from conversational model output.
//
// Models are asked to answer with a bare fragment (a JSON array, a single
// word) but often wrap it in prose. Parsers tolerate the prose and require
// the fragment itself to be well formed.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pario-ai/sous/pkg/models"
)

// ErrParse is returned when the expected shape is absent from the text.
var ErrParse = errors.New("parse: unexpected model output")

// Text returns the trimmed response. Only an empty response fails.
func Text(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty text", ErrParse)
	}
	return s, nil
}

// Array returns the JSON array that starts at the first '[' in raw. Text
// after the array is ignored; a malformed array is a parse failure.
func Array(raw string) (json.RawMessage, error) {
	i := strings.IndexByte(raw, '[')
	if i < 0 {
		return nil, fmt.Errorf("%w: no JSON array found", ErrParse)
	}
	var msg json.RawMessage
	if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON array: %v", ErrParse, err)
	}
	return msg, nil
}

// Names extracts a JSON array of strings, dropping blank entries.
func Names(raw string) ([]string, error) {
	arr, err := Array(raw)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(arr, &names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// Risks extracts a JSON array of risk records. Missing reason or
// recommendation fields are tolerated. Risk levels are matched
// case-insensitively; records with any other level are dropped, and at most
// models.MaxRiskPredictions are kept. Only a missing or malformed array fails.
func Risks(raw string) ([]models.RiskPrediction, error) {
	arr, err := Array(raw)
	if err != nil {
		return nil, err
	}
	var risks []models.RiskPrediction
	if err := json.Unmarshal(arr, &risks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	out := make([]models.RiskPrediction, 0, min(len(risks), models.MaxRiskPredictions))
	for _, r := range risks {
		level, ok := models.ParseRiskLevel(string(r.Risk))
		if !ok {
			continue
		}
		r.Risk = level
		out = append(out, r)
		if len(out) == models.MaxRiskPredictions {
			break
		}
	}
	return out, nil
}

// Sentiment accepts exactly one of Positive, Neutral or Negative.
func Sentiment(raw string) (models.Sentiment, error) {
	switch s := models.Sentiment(strings.TrimSpace(raw)); s {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
		return s, nil
	default:
		return "", fmt.Errorf("%w: sentiment %q", ErrParse, truncate(string(s), 32))
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
