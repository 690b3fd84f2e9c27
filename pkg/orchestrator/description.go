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

// GenerateDescription returns a menu description for a dish. Results are
// cached per normalized dish name.
func (s *Service) GenerateDescription(ctx context.Context, name, category string) (string, bool, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	key := normalizeName(name)
	if err := cache.ValidateIdentifier(key); err != nil {
		return "", false, fmt.Errorf("%w: dish name: %v", ErrInvalidInput, err)
	}
	text, usedFallback := run(ctx, s, job[string]{
		feature:    models.FeatureDescription,
		identifier: key,
		prompt:     descriptionPrompt(name, category),
		parse:      parse.Text,
		fallback:   func() string { return fallback.Description(name, category) },
	})
	return text, usedFallback, nil
}

// normalizeName lowercases and collapses whitespace so "Pasta " and
// "pasta" share a cache entry.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
