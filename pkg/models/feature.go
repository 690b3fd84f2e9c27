package models

import "fmt"

// Feature identifies an AI-backed product capability. It selects the cache
// policy, the prompt, the parser, and the fallback.
type Feature string

const (
	FeatureDescription    Feature = "description"
	FeatureRecommendation Feature = "recommendation"
	FeatureInventoryRisk  Feature = "inventory_risk"
	FeatureSentiment      Feature = "sentiment"
)

// Features lists every feature in a stable order.
var Features = []Feature{
	FeatureDescription,
	FeatureRecommendation,
	FeatureInventoryRisk,
	FeatureSentiment,
}

// Cacheable reports whether results for the feature are ever cached.
// Sentiment is tied to a single review and is never reused.
func (f Feature) Cacheable() bool {
	return f != FeatureSentiment
}

// ParseFeature converts a string to a Feature.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}
