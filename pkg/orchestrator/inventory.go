package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/fallback"
	"github.com/pario-ai/sous/pkg/models"
	"github.com/pario-ai/sous/pkg/parse"
)

// AllRestaurants is the identifier for a chain-wide inventory prediction.
const AllRestaurants = "all"

// PredictInventoryRisk flags snapshot items likely to run out. An empty
// restaurantID means AllRestaurants.
func (s *Service) PredictInventoryRisk(ctx context.Context, restaurantID string, snapshot []models.InventoryItem) ([]models.RiskPrediction, bool, error) {
	key := strings.TrimSpace(restaurantID)
	if key == "" {
		key = AllRestaurants
	}
	if err := cache.ValidateIdentifier(key); err != nil {
		return nil, false, fmt.Errorf("%w: restaurant id: %v", ErrInvalidInput, err)
	}
	if len(snapshot) == 0 {
		return []models.RiskPrediction{}, false, nil
	}

	risks, usedFallback := run(ctx, s, job[[]models.RiskPrediction]{
		feature:    models.FeatureInventoryRisk,
		identifier: key,
		prompt:     inventoryPrompt(snapshot),
		parse:      parse.Risks,
		fallback:   func() []models.RiskPrediction { return fallback.InventoryRisk(snapshot) },
	})
	return risks, usedFallback, nil
}
