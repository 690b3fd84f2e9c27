package parse

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pario-ai/sous/pkg/models"
)

func TestText(t *testing.T) {
	got, err := Text("  A rich, slow-cooked ragù.\n")
	if err != nil {
		t.Fatal(err)
	}
	if got != "A rich, slow-cooked ragù." {
		t.Errorf("got %q", got)
	}
	if _, err := Text(" \n\t"); !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse for blank text, got %v", err)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"bare array", `["Pasta", "Tiramisu"]`, []string{"Pasta", "Tiramisu"}},
		{"embedded in prose", "Sure! Based on their history:\n[\"Margherita Pizza\"]\nEnjoy.", []string{"Margherita Pizza"}},
		{"fenced", "```json\n[\"Soup\"]\n```", []string{"Soup"}},
		{"trailing prose with brackets", `["A", "B"] [as requested]`, []string{"A", "B"}},
		{"blank entries dropped", `["A", " ", ""]`, []string{"A"}},
		{"empty array", `[]`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Names(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNamesFailures(t *testing.T) {
	for _, raw := range []string{
		"I would recommend the pasta.",
		`["Pasta", ]`,
		`["Pasta", ] -- sorry, corrected: ["Soup"]`,
		`Picks [top 2]: ["A", "B"]`,
		`[1, 2, 3]`,
		`[`,
		``,
	} {
		if _, err := Names(raw); !errors.Is(err, ErrParse) {
			t.Errorf("Names(%q): expected ErrParse, got %v", raw, err)
		}
	}
}

func TestRisks(t *testing.T) {
	raw := `Here is the analysis:
[
  {"name": "Salmon", "risk": "High", "reason": "Only 3 left", "recommendation": "Order today"},
  {"name": "Basil", "risk": "Medium"}
]
Let me know if you need more.`

	got, err := Risks(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.RiskPrediction{
		{Name: "Salmon", Risk: models.RiskHigh, Reason: "Only 3 left", Recommendation: "Order today"},
		{Name: "Basil", Risk: models.RiskMedium},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Risks mismatch (-want +got):\n%s", diff)
	}
}

func TestRisksNormalizesLevels(t *testing.T) {
	raw := `[
  {"name": "Lemons", "risk": "Low"},
  {"name": "Salmon", "risk": "high", "reason": "Selling fast"},
  {"name": "Cream", "risk": "Critical"},
  {"name": "Basil", "risk": "Medium"},
  {"name": "Rice", "risk": "MEDIUM"},
  {"name": "Eggs", "risk": "High"},
  {"name": "Flour"}
]`
	got, err := Risks(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.RiskPrediction{
		{Name: "Salmon", Risk: models.RiskHigh, Reason: "Selling fast"},
		{Name: "Basil", Risk: models.RiskMedium},
		{Name: "Rice", Risk: models.RiskMedium},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Risks mismatch (-want +got):\n%s", diff)
	}
}

func TestRisksNoKnownLevels(t *testing.T) {
	got, err := Risks(`[{"name": "Lemons", "risk": "Low"}]`)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil list", got)
	}
}

func TestRisksFailures(t *testing.T) {
	for _, raw := range []string{
		"Everything looks fine.",
		`[{"name": "Salmon",}]`,
		`["Salmon"]`,
	} {
		if _, err := Risks(raw); !errors.Is(err, ErrParse) {
			t.Errorf("Risks(%q): expected ErrParse, got %v", raw, err)
		}
	}
}

func TestSentiment(t *testing.T) {
	for _, raw := range []string{"Positive", " Neutral\n", "Negative"} {
		if _, err := Sentiment(raw); err != nil {
			t.Errorf("Sentiment(%q): %v", raw, err)
		}
	}
	for _, raw := range []string{"positive", "NEGATIVE", "Positive.", "The review is Positive", ""} {
		if _, err := Sentiment(raw); !errors.Is(err, ErrParse) {
			t.Errorf("Sentiment(%q): expected ErrParse, got %v", raw, err)
		}
	}
}
