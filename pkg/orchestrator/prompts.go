package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pario-ai/sous/pkg/models"
)

// maxReviewChars bounds the review text, in runes, sent for classification.
const maxReviewChars = 2000

func descriptionPrompt(name, category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, appetizing menu description for the dish %q", name)
	if category != "" {
		fmt.Fprintf(&b, " in the %q category", category)
	}
	b.WriteString(". Answer with one or two sentences and nothing else.")
	return b.String()
}

func recommendationPrompt(history []models.Purchase, menu []models.MenuItem) string {
	var b strings.Builder
	b.WriteString("A customer previously ordered:\n")
	if len(history) == 0 {
		b.WriteString("- nothing yet\n")
	}
	for _, p := range history {
		fmt.Fprintf(&b, "- %s", p.ItemName)
		if p.Category != "" {
			fmt.Fprintf(&b, " (%s)", p.Category)
		}
		if p.Quantity > 1 {
			fmt.Fprintf(&b, " x%d", p.Quantity)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nThe menu currently offers:\n")
	for _, m := range menu {
		fmt.Fprintf(&b, "- %s", m.Name)
		if m.Category != "" {
			fmt.Fprintf(&b, " (%s)", m.Category)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nRecommend up to %d menu items this customer is likely to enjoy. ", maxRecommendations)
	b.WriteString(`Answer with only a JSON array of item names, for example ["Item A", "Item B"].`)
	return b.String()
}

func inventoryPrompt(snapshot []models.InventoryItem) string {
	var b strings.Builder
	b.WriteString("Current inventory (name: stock on hand, units sold recently):\n")
	for _, it := range snapshot {
		fmt.Fprintf(&b, "- %s: %d in stock, %d sold\n", it.Name, it.Stock, it.RecentSales)
	}
	b.WriteString("\nIdentify up to 3 items most likely to run out soon. ")
	b.WriteString(`Answer with only a JSON array of objects with the fields "name", "risk" ("High" or "Medium"), "reason" and "recommendation".`)
	return b.String()
}

func sentimentPrompt(text string) string {
	if r := []rune(text); len(r) > maxReviewChars {
		text = string(r[:maxReviewChars])
	}
	return "Classify the sentiment of this restaurant review as Positive, Neutral or Negative. " +
		"Answer with exactly one of those words.\n\nReview:\n" + text
}
