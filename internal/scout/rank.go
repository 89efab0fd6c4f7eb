package scout

import (
	"sort"

	"github.com/sells-group/company-scout/internal/model"
)

// maxRejected caps how many below-threshold companies are kept for
// caller transparency.
const maxRejected = 20

// dedupeByDomain collapses companies sharing a normalized domain into
// one record, keeping the higher-scoring one and unioning sources.
func dedupeByDomain(companies []model.Company) []model.Company {
	byDomain := make(map[string]int)
	out := make([]model.Company, 0, len(companies))
	for _, c := range companies {
		if c.Domain == "" {
			out = append(out, c)
			continue
		}
		idx, ok := byDomain[c.Domain]
		if !ok {
			byDomain[c.Domain] = len(out)
			out = append(out, c)
			continue
		}

		kept := out[idx]
		sources := unionSources(kept.Sources, c.Sources)
		if c.RelevanceScore > kept.RelevanceScore {
			kept = c
		}
		kept.Sources = sources
		kept.Mentions = max(1, len(sources))
		out[idx] = kept
	}
	return out
}

func unionSources(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// rank removes cross-record domain duplicates, sorts accepted companies
// descending by score and truncates to maxResults, sorts and caps
// rejected companies, and assembles the final payload with aggregate
// counters. Extraction already deduped its own output, but verification
// URL correction can rewrite a domain into a collision, so the final
// list is deduped again here.
func rank(companies []model.Company, maxResults int) *model.ScoutResult {
	companies = dedupeByDomain(companies)

	var accepted, rejected []model.Company
	for _, c := range companies {
		if c.Status == model.StatusAccepted {
			accepted = append(accepted, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].RelevanceScore > accepted[j].RelevanceScore
	})
	sort.SliceStable(rejected, func(i, j int) bool {
		return rejected[i].RelevanceScore > rejected[j].RelevanceScore
	})

	if len(accepted) > maxResults {
		accepted = accepted[:maxResults]
	}
	if len(rejected) > maxRejected {
		rejected = rejected[:maxRejected]
	}

	sources := make(map[string]struct{})
	final := make([]model.Company, 0, len(accepted)+len(rejected))
	final = append(final, accepted...)
	final = append(final, rejected...)
	for _, c := range final {
		for _, s := range c.Sources {
			sources[s] = struct{}{}
		}
	}

	return &model.ScoutResult{
		Companies:             final,
		InScopeCount:          len(accepted),
		OutOfScopeCount:       len(rejected),
		TotalSourcesProcessed: len(sources),
	}
}
