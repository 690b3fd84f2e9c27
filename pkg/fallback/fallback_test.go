package fallback

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pario-ai/sous/pkg/models"
)

func TestDescription(t *testing.T) {
	got := Description("Pasta", "Main Course")
	want := "A delicious Pasta from our main course selection, prepared fresh with quality ingredients."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if Description("Pasta", "Main Course") != got {
		t.Error("description fallback must be deterministic")
	}
	if got := Description("Bread", ""); got != "Bread, prepared fresh in our kitchen with quality ingredients." {
		t.Errorf("unexpected no-category text %q", got)
	}
}

func TestRecommendations(t *testing.T) {
	got := Recommendations()
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestInventoryRiskScenario(t *testing.T) {
	items := []models.InventoryItem{
		{Name: "Salmon", Stock: 3, RecentSales: 8},
		{Name: "Rice", Stock: 50, RecentSales: 5},
	}
	got := InventoryRisk(items)
	if len(got) != 1 {
		t.Fatalf("expected exactly one record, got %+v", got)
	}
	if got[0].Name != "Salmon" || got[0].Risk != models.RiskHigh {
		t.Errorf("unexpected record %+v", got[0])
	}
	if got[0].Reason == "" || got[0].Recommendation == "" {
		t.Error("expected templated reason and recommendation")
	}
}

func TestInventoryRiskRules(t *testing.T) {
	items := []models.InventoryItem{
		{Name: "Basil", Stock: 7, RecentSales: 4},     // 7 < 8 and < 10: Medium
		{Name: "Cream", Stock: 9, RecentSales: 4},     // 9 >= 8: skipped
		{Name: "Truffle", Stock: 12, RecentSales: 20}, // >= 10: skipped
		{Name: "Eggs", Stock: 4, RecentSales: 3},      // 4 < 6: High
		{Name: "Lemons", Stock: 0, RecentSales: 1},    // High
		{Name: "Flour", Stock: 1, RecentSales: 5},     // over the cap
	}
	got := InventoryRisk(items)

	names := make([]string, len(got))
	levels := make([]models.RiskLevel, len(got))
	for i, r := range got {
		names[i] = r.Name
		levels[i] = r.Risk
	}
	if diff := cmp.Diff([]string{"Basil", "Eggs", "Lemons"}, names); diff != "" {
		t.Errorf("flagged items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]models.RiskLevel{models.RiskMedium, models.RiskHigh, models.RiskHigh}, levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, InventoryRisk(items)); diff != "" {
		t.Errorf("inventory fallback must be deterministic:\n%s", diff)
	}
}

func TestInventoryRiskNoSales(t *testing.T) {
	// Zero sales never satisfies stock < 2*sales.
	if got := InventoryRisk([]models.InventoryItem{{Name: "Salt", Stock: 1}}); len(got) != 0 {
		t.Errorf("expected nothing flagged, got %+v", got)
	}
}

func TestSentiment(t *testing.T) {
	if Sentiment() != models.SentimentNeutral {
		t.Error("sentiment fallback must be Neutral")
	}
}
