package scout

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
)

// SelfTestCase drives one end-to-end pipeline run against the live
// search provider.
type SelfTestCase struct {
	Name              string
	Criteria          string
	ExpectedCompanies []string
	MinExpectedCount  int
}

// SelfTestOutcome reports one case's soft pass/fail. These runs depend
// on a live provider and are flaky by nature; callers should report,
// not hard-fail.
type SelfTestOutcome struct {
	Case         SelfTestCase
	Passed       bool
	CompanyCount int
	Found        []string
	Err          error
}

// DefaultSelfTestCases is the built-in acceptance suite.
var DefaultSelfTestCases = []SelfTestCase{
	{
		Name:              "cloud-observability",
		Criteria:          "cloud observability and monitoring platforms for engineering teams",
		ExpectedCompanies: []string{"Datadog", "Grafana", "New Relic", "Honeycomb"},
		MinExpectedCount:  5,
	},
	{
		Name:              "dtc-telehealth",
		Criteria:          "direct-to-consumer telehealth companies offering GLP-1 weight loss drugs",
		ExpectedCompanies: []string{"Hims", "Ro", "Noom"},
		MinExpectedCount:  3,
	},
	{
		Name:              "payments-infra",
		Criteria:          "developer-focused payments infrastructure companies with public APIs",
		ExpectedCompanies: []string{"Stripe", "Adyen", "Checkout.com"},
		MinExpectedCount:  3,
	},
}

// SelfTest runs each case through the full pipeline. A case passes when
// the result count meets MinExpectedCount and at least
// min(2, len(expected)) expected names appear, case-insensitively, as
// substrings of returned company names.
func (e *Engine) SelfTest(ctx context.Context, tcs []SelfTestCase, rep progress.Reporter) []SelfTestOutcome {
	outcomes := make([]SelfTestOutcome, 0, len(tcs))
	for _, tc := range tcs {
		outcome := SelfTestOutcome{Case: tc}

		result, err := e.Scout(ctx, model.ScoutRequest{Criteria: tc.Criteria}, rep)
		if err != nil {
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			zap.L().Warn("selftest: case errored", zap.String("case", tc.Name), zap.Error(err))
			continue
		}

		outcome.CompanyCount = len(result.Companies)
		outcome.Found = matchExpected(tc.ExpectedCompanies, result.Companies)
		needed := min(2, len(tc.ExpectedCompanies))
		outcome.Passed = outcome.CompanyCount >= tc.MinExpectedCount && len(outcome.Found) >= needed

		zap.L().Info("selftest: case finished",
			zap.String("case", tc.Name),
			zap.Bool("passed", outcome.Passed),
			zap.Int("companies", outcome.CompanyCount),
			zap.Strings("found", outcome.Found))
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// matchExpected returns the expected names that appear as caseless
// substrings of any returned company name.
func matchExpected(expected []string, companies []model.Company) []string {
	fold := cases.Fold()
	var found []string
	for _, want := range expected {
		needle := fold.String(want)
		for _, c := range companies {
			if strings.Contains(fold.String(c.Name), needle) {
				found = append(found, want)
				break
			}
		}
	}
	return found
}
