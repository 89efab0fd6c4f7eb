// Package scout implements the company-discovery pipeline: LLM query
// planning, staggered parallel search, candidate extraction, two-pass
// verification with bounded concurrency, and final ranking.
package scout

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
	"github.com/sells-group/company-scout/internal/resilience"
	"github.com/sells-group/company-scout/pkg/anthropic"
	"github.com/sells-group/company-scout/pkg/exa"
)

// Tuning defaults, overridable via Config.
const (
	defaultStagger           = 600 * time.Millisecond
	defaultResultsPerQuery   = 15
	defaultVerifyResults     = 5
	defaultVerifyBatchSize   = 8
	defaultVerifyConcurrency = 3
	defaultMaxCorpusResults  = 80
)

// Config tunes the pipeline. Zero values fall back to the defaults above.
type Config struct {
	FastModel                 string
	StrongModel               string
	Stagger                   time.Duration
	ResultsPerQuery           int
	VerifyResultsPerCandidate int
	VerifyBatchSize           int
	VerifyConcurrency         int
	MaxCorpusResults          int
}

func (c Config) withDefaults() Config {
	if c.Stagger == 0 {
		c.Stagger = defaultStagger
	}
	if c.ResultsPerQuery == 0 {
		c.ResultsPerQuery = defaultResultsPerQuery
	}
	if c.VerifyResultsPerCandidate == 0 {
		c.VerifyResultsPerCandidate = defaultVerifyResults
	}
	if c.VerifyBatchSize == 0 {
		c.VerifyBatchSize = defaultVerifyBatchSize
	}
	if c.VerifyConcurrency == 0 {
		c.VerifyConcurrency = defaultVerifyConcurrency
	}
	if c.MaxCorpusResults == 0 {
		c.MaxCorpusResults = defaultMaxCorpusResults
	}
	return c
}

// Engine runs the discovery pipeline. One Engine is safe for concurrent
// Scout calls; the only shared state is the search client's session and
// the circuit breaker, both designed for concurrent use.
type Engine struct {
	search  exa.Client
	ai      anthropic.Client
	cfg     Config
	breaker *resilience.CircuitBreaker
}

// NewEngine wires the pipeline against a search client and a model client.
func NewEngine(search exa.Client, ai anthropic.Client, cfg Config) *Engine {
	return &Engine{
		search:  search,
		ai:      ai,
		cfg:     cfg.withDefaults(),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
}

// Scout runs the full pipeline for one research brief. Provider and
// model failures degrade to reduced result quality; only an invalid
// request is returned as an error. A fully-down search provider yields
// a well-formed empty result.
func (e *Engine) Scout(ctx context.Context, req model.ScoutRequest, rep progress.Reporter) (*model.ScoutResult, error) {
	if rep == nil {
		rep = progress.Nop()
	}
	req.Normalize()

	criteria := strings.TrimSpace(req.Criteria)
	if n := utf8.RuneCountInString(criteria); n < 10 || n > 1000 {
		return nil, eris.Errorf("scout: criteria must be 10-1000 characters, got %d", n)
	}

	log := zap.L().With(zap.String("criteria", criteria))
	log.Info("scout: starting pipeline",
		zap.Int("max_results", req.MaxResults),
		zap.Int("min_relevance_score", req.MinRelevanceScore))

	// Stage 1: plan queries.
	rep.Report(progress.Event{Stage: progress.StagePlanning, Message: "planning search queries"})
	queries := e.planQueries(ctx, criteria)
	rep.Report(progress.Event{
		Stage:   progress.StagePlanning,
		Message: "queries planned",
		Data:    map[string]any{"queries": queries},
	})

	// Stage 2: staggered parallel search.
	resultSets := e.runMany(ctx, queries, e.cfg.ResultsPerQuery, progress.StageSearch, rep)
	var corpus []model.SearchResult
	for _, set := range resultSets {
		corpus = append(corpus, set...)
	}
	log.Info("scout: search complete",
		zap.Int("queries", len(queries)),
		zap.Int("results", len(corpus)))

	// Stage 3: extract candidates.
	rep.Report(progress.Event{Stage: progress.StageExtract, Message: "extracting candidates"})
	candidates := e.extractCandidates(ctx, criteria, corpus)
	rep.Report(progress.Event{
		Stage:   progress.StageExtract,
		Message: "candidates extracted",
		Data:    map[string]any{"count": len(candidates)},
	})

	// Stage 4: verify.
	companies := e.verifyCandidates(ctx, criteria, candidates, req.MinRelevanceScore, rep)

	// Stage 5: rank, filter, cap.
	rep.Report(progress.Event{Stage: progress.StageRank, Message: "ranking companies"})
	result := rank(companies, req.MaxResults)
	result.QueriesRun = len(queries) + len(candidates)
	result.SearchQueries = queries

	rep.Report(progress.Event{
		Stage:   progress.StageComplete,
		Message: "pipeline complete",
		Data: map[string]any{
			"companies":    len(result.Companies),
			"in_scope":     result.InScopeCount,
			"out_of_scope": result.OutOfScopeCount,
		},
	})
	log.Info("scout: pipeline complete",
		zap.Int("companies", len(result.Companies)),
		zap.Int("in_scope", result.InScopeCount),
		zap.Int("queries_run", result.QueriesRun))
	return result, nil
}
