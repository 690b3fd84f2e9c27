// Package fallback holds the deterministic answers served when the model
// cannot be used. Every function here is pure and performs no I/O.
package fallback

import (
	"fmt"
	"strings"

	"github.com/pario-ai/sous/pkg/models"
)

// MaxRiskItems caps the number of items the inventory heuristic flags.
const MaxRiskItems = models.MaxRiskPredictions

// Description returns a templated sentence for a dish.
func Description(name, category string) string {
	name = strings.TrimSpace(name)
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return fmt.Sprintf("%s, prepared fresh in our kitchen with quality ingredients.", name)
	}
	return fmt.Sprintf("A delicious %s from our %s selection, prepared fresh with quality ingredients.", name, category)
}

// Recommendations returns no recommendations. An empty list is a valid
// answer the presentation layer renders specially.
func Recommendations() []models.ItemRef {
	return []models.ItemRef{}
}

// InventoryRisk flags items whose stock covers less than two periods of
// recent sales and is below 10 units. Stock below 5 is High, otherwise
// Medium. Items keep their input order and at most MaxRiskItems are returned.
func InventoryRisk(items []models.InventoryItem) []models.RiskPrediction {
	out := []models.RiskPrediction{}
	for _, it := range items {
		if len(out) == MaxRiskItems {
			break
		}
		if it.Stock >= 2*it.RecentSales || it.Stock >= 10 {
			continue
		}
		risk := models.RiskMedium
		if it.Stock < 5 {
			risk = models.RiskHigh
		}
		out = append(out, models.RiskPrediction{
			Name:           it.Name,
			Risk:           risk,
			Reason:         fmt.Sprintf("Only %d in stock against %d recent sales.", it.Stock, it.RecentSales),
			Recommendation: fmt.Sprintf("Reorder %s before the next service.", it.Name),
		})
	}
	return out
}

// Sentiment is Neutral: the classification is advisory and a wrong
// Positive or Negative is worse than none.
func Sentiment() models.Sentiment {
	return models.SentimentNeutral
}
