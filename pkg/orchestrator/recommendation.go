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

const maxRecommendations = 3

// GenerateRecommendations suggests up to three items from menu based on the
// user's purchase history. Names returned by the model that are not on the
// menu are dropped. Results are cached per user and restaurant.
func (s *Service) GenerateRecommendations(ctx context.Context, userID, restaurantID string, history []models.Purchase, menu []models.MenuItem) ([]models.ItemRef, bool, error) {
	userID = strings.TrimSpace(userID)
	restaurantID = strings.TrimSpace(restaurantID)
	if userID == "" || restaurantID == "" {
		return nil, false, fmt.Errorf("%w: user and restaurant ids are required", ErrInvalidInput)
	}
	key := userID + ":" + restaurantID
	if err := cache.ValidateIdentifier(key); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(menu) == 0 {
		return []models.ItemRef{}, false, nil
	}

	refs, usedFallback := run(ctx, s, job[[]models.ItemRef]{
		feature:    models.FeatureRecommendation,
		identifier: key,
		prompt:     recommendationPrompt(history, menu),
		parse: func(raw string) ([]models.ItemRef, error) {
			names, err := parse.Names(raw)
			if err != nil {
				return nil, err
			}
			return matchMenu(names, menu), nil
		},
		fallback: fallback.Recommendations,
	})
	return refs, usedFallback, nil
}

// matchMenu resolves names against menu case-insensitively, keeping the
// model's order and skipping duplicates and unknown names.
func matchMenu(names []string, menu []models.MenuItem) []models.ItemRef {
	byName := make(map[string]models.MenuItem, len(menu))
	for _, m := range menu {
		k := normalizeName(m.Name)
		if _, dup := byName[k]; !dup {
			byName[k] = m
		}
	}
	out := []models.ItemRef{}
	seen := make(map[string]bool)
	for _, n := range names {
		k := normalizeName(n)
		m, ok := byName[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m.Ref())
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}
