package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pario-ai/sous/pkg/models"
	"github.com/pario-ai/sous/pkg/usage"
)

// ErrBudgetExceeded is returned when a feature has spent its token budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	ledger   usage.Ledger
	now      func() time.Time
}

// New creates an Enforcer with the given policies and ledger.
func New(policies []models.BudgetPolicy, l usage.Ledger) *Enforcer {
	return &Enforcer{policies: policies, ledger: l, now: time.Now}
}

// Check returns ErrBudgetExceeded if the feature has exhausted any applicable policy.
// A wildcard policy counts tokens across every feature.
func (e *Enforcer) Check(ctx context.Context, feature models.Feature) error {
	for _, p := range e.applicablePolicies(feature) {
		used, err := e.used(ctx, p)
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxTokens {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns usage against every configured policy.
func (e *Enforcer) Status(ctx context.Context) ([]models.BudgetStatus, error) {
	statuses := make([]models.BudgetStatus, 0, len(e.policies))
	for _, p := range e.policies {
		used, err := e.used(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) used(ctx context.Context, p models.BudgetPolicy) (int64, error) {
	var feature models.Feature
	if p.Feature != "*" {
		feature = models.Feature(p.Feature)
	}
	return e.ledger.TotalByFeature(ctx, feature, periodStart(p.Period, e.now()))
}

func (e *Enforcer) applicablePolicies(feature models.Feature) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Feature == "*" || p.Feature == string(feature) {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
