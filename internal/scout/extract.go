package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/company-scout/internal/model"
)

const extractPrompt = `You are extracting company candidates from web search results for this research brief:

%s

Search results:
%s

Extract EVERY company that plausibly matches the brief. Be over-inclusive; a later verification pass will filter. For each company give an initial relevance score from 1 (weak guess) to 10 (obvious match) and the source URLs that mention it.

Respond with ONLY a JSON object in this exact format:
{"companies": [{"name": "...", "website": "https://...", "reason": "why it matches", "initial_score": 7, "sources": ["https://..."]}]}`

// extractCandidates makes a single fast-model call over the flattened
// search corpus and returns deduplicated candidates. The corpus is
// truncated to bound model context. Returns nil if the model output
// cannot be parsed; precision is verification's job, availability is ours.
func (e *Engine) extractCandidates(ctx context.Context, criteria string, corpus []model.SearchResult) []model.Candidate {
	if len(corpus) == 0 {
		return nil
	}
	if len(corpus) > e.cfg.MaxCorpusResults {
		corpus = corpus[:e.cfg.MaxCorpusResults]
	}

	prompt := fmt.Sprintf(extractPrompt, criteria, formatCorpus(corpus))
	text, err := e.callModel(ctx, e.cfg.FastModel, "candidate_extraction", prompt, 8192)
	if err != nil {
		zap.L().Warn("scout: candidate extraction model call failed", zap.Error(err))
		return nil
	}

	var parsed struct {
		Companies []struct {
			Name         string   `json:"name"`
			Website      string   `json:"website"`
			Reason       string   `json:"reason"`
			InitialScore int      `json:"initial_score"`
			Sources      []string `json:"sources"`
		} `json:"companies"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		zap.L().Warn("scout: failed to parse extracted candidates", zap.Error(err))
		return nil
	}

	// Dedup by normalized domain, first occurrence wins.
	seen := make(map[string]struct{})
	var candidates []model.Candidate
	for _, c := range parsed.Companies {
		if c.Name == "" {
			continue
		}
		website := model.NormalizeWebsite(c.Website)
		domain := model.NormalizeDomain(website)
		if domain == "" {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		score := c.InitialScore
		if score < 1 {
			score = 1
		}
		if score > 10 {
			score = 10
		}
		candidates = append(candidates, model.Candidate{
			ID:           uuid.NewString(),
			Name:         c.Name,
			Website:      website,
			Domain:       domain,
			Reason:       c.Reason,
			InitialScore: score,
			Sources:      c.Sources,
		})
	}
	return candidates
}

// truncateRunes caps s at limit runes without splitting a UTF-8
// sequence mid-rune.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// formatCorpus renders search results as numbered text blocks for the
// extraction prompt.
func formatCorpus(results []model.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, r.Title, r.URL)
		if r.Text != "" {
			b.WriteString(truncateRunes(r.Text, 600))
			b.WriteString("\n")
		}
		for _, h := range r.Highlights {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
