package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
)

const verifyPrompt = `You are verifying company candidates against this research brief:

%s

For each candidate below you are given its extraction-stage data and snippets from a targeted follow-up search. For EVERY candidate, judge:
- url_confirmed: does the website actually belong to this company?
- correct_url: the right website if the given one is wrong (else empty)
- matches_scope: does the company genuinely match the brief?
- scope_evidence: one sentence of evidence for your scope judgment
- adjusted_score: revised 1-10 relevance score
- description: one clean sentence describing what the company does

Candidates:
%s

Respond with ONLY a JSON object in this exact format, one entry per candidate, echoing each candidate_id unchanged:
{"results": [{"candidate_id": "...", "company_name": "...", "url_confirmed": true, "correct_url": "", "matches_scope": true, "scope_evidence": "...", "adjusted_score": 8, "description": "..."}]}`

// verifyCandidates runs the two-substage verification pass: one targeted
// search per candidate (staggered, progress sampled every 5th query),
// then batch scoring on the strong model with a hard concurrency cap.
// A batch whose model call fails to parse falls back to the candidates'
// initial scores with verified=false; the pipeline always moves forward.
func (e *Engine) verifyCandidates(ctx context.Context, criteria string, candidates []model.Candidate, minScore int, rep progress.Reporter) []model.Company {
	if len(candidates) == 0 {
		return nil
	}

	// Substage 1: targeted search per candidate.
	rep.Report(progress.Event{
		Stage:    progress.StageVerifySearch,
		Message:  fmt.Sprintf("verifying %d candidates", len(candidates)),
		Progress: &progress.Counter{Current: 0, Total: len(candidates)},
	})
	keywords := topKeywords(criteria, 3)
	queries := make([]string, len(candidates))
	for i, c := range candidates {
		queries[i] = fmt.Sprintf("%q %s", c.Name, strings.Join(keywords, " "))
	}
	snippets := e.runMany(ctx, queries, e.cfg.VerifyResultsPerCandidate, progress.StageVerifySearch, progress.Sampled(rep, 5))

	// Substage 2: batch scoring, at most VerifyConcurrency batches in flight.
	var (
		mu        sync.Mutex
		companies []model.Company
		verified  int
		rejected  int
	)
	totalBatches := (len(candidates) + e.cfg.VerifyBatchSize - 1) / e.cfg.VerifyBatchSize
	batchesDone := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.VerifyConcurrency)
	for start := 0; start < len(candidates); start += e.cfg.VerifyBatchSize {
		end := min(start+e.cfg.VerifyBatchSize, len(candidates))
		batch := candidates[start:end]
		batchSnippets := snippets[start:end]

		g.Go(func() error {
			batchCompanies := e.verifyBatch(gctx, criteria, batch, batchSnippets, minScore)

			mu.Lock()
			defer mu.Unlock()
			var recent []string
			for _, c := range batchCompanies {
				if c.Status == model.StatusAccepted {
					verified++
				} else {
					rejected++
				}
				recent = append(recent, c.Name)
			}
			companies = append(companies, batchCompanies...)
			batchesDone++
			rep.Report(progress.Event{
				Stage:    progress.StageVerifyScore,
				Message:  fmt.Sprintf("verified batch of %d", len(batch)),
				Progress: &progress.Counter{Current: batchesDone, Total: totalBatches},
				Data: map[string]any{
					"verified": verified,
					"rejected": rejected,
					"recent":   recent,
				},
			})
			return nil
		})
	}
	_ = g.Wait() // batch goroutines only return nil

	return companies
}

// verifyBatch scores one batch via a single strong-model call,
// re-associating results to candidates by synthetic ID, then by folded
// name, then by position. Any call or parse failure converts the whole
// batch from initial scores.
func (e *Engine) verifyBatch(ctx context.Context, criteria string, batch []model.Candidate, snippets [][]model.SearchResult, minScore int) []model.Company {
	prompt := fmt.Sprintf(verifyPrompt, criteria, formatBatch(batch, snippets))
	text, err := e.callModel(ctx, e.cfg.StrongModel, "verification_scoring", prompt, 8192)
	if err != nil {
		zap.L().Warn("scout: verification model call failed, falling back to initial scores",
			zap.Int("batch_size", len(batch)), zap.Error(err))
		return fallbackCompanies(batch, minScore)
	}

	var parsed struct {
		Results []model.VerificationResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil || len(parsed.Results) == 0 {
		zap.L().Warn("scout: failed to parse verification results, falling back to initial scores",
			zap.Int("batch_size", len(batch)), zap.Error(err))
		return fallbackCompanies(batch, minScore)
	}

	fold := cases.Fold()
	byID := make(map[string]*model.VerificationResult, len(parsed.Results))
	byName := make(map[string]*model.VerificationResult, len(parsed.Results))
	for i := range parsed.Results {
		vr := &parsed.Results[i]
		if vr.CandidateID != "" {
			byID[vr.CandidateID] = vr
		}
		if vr.CompanyName != "" {
			byName[fold.String(strings.TrimSpace(vr.CompanyName))] = vr
		}
	}

	companies := make([]model.Company, 0, len(batch))
	for i, cand := range batch {
		vr := byID[cand.ID]
		if vr == nil {
			vr = byName[fold.String(strings.TrimSpace(cand.Name))]
		}
		if vr == nil && i < len(parsed.Results) {
			vr = &parsed.Results[i]
		}
		if vr == nil {
			companies = append(companies, companyFromCandidate(cand, minScore))
			continue
		}
		companies = append(companies, companyFromVerification(cand, vr, minScore))
	}
	return companies
}

// fallbackCompanies converts every candidate in a failed batch directly
// from its initial score, marked unverified.
func fallbackCompanies(batch []model.Candidate, minScore int) []model.Company {
	companies := make([]model.Company, 0, len(batch))
	for _, cand := range batch {
		companies = append(companies, companyFromCandidate(cand, minScore))
	}
	return companies
}

func companyFromCandidate(cand model.Candidate, minScore int) model.Company {
	status := model.StatusRejected
	if cand.InitialScore >= minScore {
		status = model.StatusAccepted
	}
	return model.Company{
		Name:           cand.Name,
		Website:        cand.Website,
		Domain:         cand.Domain,
		Description:    cand.Reason,
		RelevanceScore: cand.InitialScore,
		RelevanceLevel: model.RelevanceLevelFor(cand.InitialScore),
		Status:         status,
		Reason:         cand.Reason,
		Sources:        cand.Sources,
		Mentions:       max(1, len(cand.Sources)),
		Verified:       false,
	}
}

func companyFromVerification(cand model.Candidate, vr *model.VerificationResult, minScore int) model.Company {
	website := cand.Website
	if !vr.URLConfirmed && vr.CorrectURL != "" {
		website = model.NormalizeWebsite(vr.CorrectURL)
	}
	domain := model.NormalizeDomain(website)
	if domain == "" {
		domain = cand.Domain
	}

	score := vr.AdjustedScore
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	status := model.StatusRejected
	if score >= minScore {
		status = model.StatusAccepted
	}

	description := vr.Description
	if description == "" {
		description = cand.Reason
	}

	return model.Company{
		Name:           cand.Name,
		Website:        website,
		Domain:         domain,
		Description:    description,
		RelevanceScore: score,
		RelevanceLevel: model.RelevanceLevelFor(score),
		Status:         status,
		Reason:         vr.ScopeEvidence,
		Sources:        cand.Sources,
		Mentions:       max(1, len(cand.Sources)),
		Verified:       vr.URLConfirmed && vr.MatchesScope,
	}
}

// formatBatch renders candidates and their verification snippets for the
// scoring prompt.
func formatBatch(batch []model.Candidate, snippets [][]model.SearchResult) string {
	var b strings.Builder
	for i, cand := range batch {
		fmt.Fprintf(&b, "candidate_id: %s\nname: %s\nwebsite: %s\ninitial_score: %d\nextraction_reason: %s\n",
			cand.ID, cand.Name, cand.Website, cand.InitialScore, cand.Reason)
		if i < len(snippets) && len(snippets[i]) > 0 {
			b.WriteString("search_snippets:\n")
			for _, r := range snippets[i] {
				fmt.Fprintf(&b, "- %s (%s) %s\n", r.Title, r.URL, truncateRunes(r.Text, 300))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
