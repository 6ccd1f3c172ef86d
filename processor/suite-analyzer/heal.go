package suiteanalyzer

import (
	"context"
	"fmt"

	"github.com/c360studio/casegen/workflow"
	"golang.org/x/sync/errgroup"
)

// HealOutcome is one healed test case.
type HealOutcome struct {
	TestCaseID string                 `json:"testCaseId"`
	Rationale  string                 `json:"rationale"`
	Patch      workflow.TestCasePatch `json:"patch"`
	// TestCase is the original with Patch applied.
	TestCase workflow.TestCase `json:"testCase"`
}

// HealImpacted heals every impacted case whose suggestion is Update
// required, running up to HealConcurrency calls at once. Outcomes follow
// the order of impacts. The first failure cancels the remaining calls and
// is returned.
func (a *Analyzer) HealImpacted(ctx context.Context, change string, cases []workflow.TestCase, impacts []workflow.ImpactResult) ([]HealOutcome, error) {
	index := workflow.IndexTestCases(cases)

	var targets []workflow.ImpactResult
	for _, imp := range impacts {
		if imp.Suggestion != workflow.SuggestionUpdateRequired {
			continue
		}
		if _, ok := index[imp.TestCaseID]; !ok {
			return nil, fmt.Errorf("impacted test case %q not found", imp.TestCaseID)
		}
		targets = append(targets, imp)
	}

	outcomes := make([]HealOutcome, len(targets))
	if len(targets) == 0 {
		return outcomes, nil
	}

	limit := a.config.HealConcurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, imp := range targets {
		g.Go(func() error {
			tc := index[imp.TestCaseID]
			patch, err := a.healer.Heal(gctx, tc, change, imp.Rationale)
			if err != nil {
				return err
			}
			outcomes[i] = HealOutcome{
				TestCaseID: tc.ID,
				Rationale:  imp.Rationale,
				Patch:      patch,
				TestCase:   patch.Apply(tc),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("Impacted test cases healed", "healed", len(outcomes))
	return outcomes, nil
}
