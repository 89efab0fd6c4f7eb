package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-scout/internal/config"
	"github.com/sells-group/company-scout/internal/scout"
	"github.com/sells-group/company-scout/pkg/anthropic"
	"github.com/sells-group/company-scout/pkg/exa"
)

// buildEngine wires the pipeline from config. Missing credentials are
// the one fatal startup error; everything downstream degrades softly.
func buildEngine(cfg *config.Config) (*scout.Engine, error) {
	if cfg.Exa.Key == "" {
		return nil, eris.New("exa API key not configured (set SCOUT_EXA_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key not configured (set SCOUT_ANTHROPIC_KEY)")
	}

	opts := []exa.Option{
		exa.WithBaseURL(cfg.Exa.BaseURL),
		exa.WithSessionTTL(time.Duration(cfg.Exa.SessionTTLSecs) * time.Second),
		exa.WithRateLimit(cfg.Exa.RateLimit),
	}
	if cfg.Exa.TimeoutSecs > 0 {
		opts = append(opts, exa.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Exa.TimeoutSecs) * time.Second,
		}))
	}
	search := exa.NewClient(cfg.Exa.Key, opts...)
	ai := anthropic.NewClient(cfg.Anthropic.Key)

	return scout.NewEngine(search, ai, scout.Config{
		FastModel:                 cfg.Anthropic.FastModel,
		StrongModel:               cfg.Anthropic.StrongModel,
		Stagger:                   time.Duration(cfg.Scout.StaggerMs) * time.Millisecond,
		ResultsPerQuery:           cfg.Scout.ResultsPerQuery,
		VerifyResultsPerCandidate: cfg.Scout.VerifyResultsPerCandidate,
		VerifyBatchSize:           cfg.Scout.VerifyBatchSize,
		VerifyConcurrency:         cfg.Scout.VerifyConcurrency,
		MaxCorpusResults:          cfg.Scout.MaxCorpusResults,
	}), nil
}
