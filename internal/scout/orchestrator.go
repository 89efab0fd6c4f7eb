package scout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
	"github.com/sells-group/company-scout/internal/resilience"
)

// runMany dispatches queries to the search client with staggered start
// times (index * stagger) to smooth provider load. Output preserves
// input order; a failing query resolves to an empty slice rather than
// aborting the batch. A progress event fires after every completion.
func (e *Engine) runMany(ctx context.Context, queries []string, numResults int, stage string, rep progress.Reporter) [][]model.SearchResult {
	out := make([][]model.SearchResult, len(queries))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			delay := time.Duration(i) * e.cfg.Stagger
			if delay > 0 {
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(delay):
				}
			}

			results, err := resilience.ExecuteVal(gctx, e.breaker, func(ctx context.Context) ([]model.SearchResult, error) {
				return e.searchOne(ctx, query, numResults)
			})
			if err != nil {
				zap.L().Warn("scout: search failed, continuing with empty results",
					zap.String("query", query), zap.Error(err))
			} else {
				out[i] = results
			}

			done := completed.Add(1)
			rep.Report(progress.Event{
				Stage:    stage,
				Message:  fmt.Sprintf("searched %q", query),
				Progress: &progress.Counter{Current: int(done), Total: len(queries)},
			})
			return nil
		})
	}
	_ = g.Wait() // goroutines only return nil; ctx cancellation surfaces as empty slots

	return out
}

// searchOne adapts the provider's result type to the pipeline's.
func (e *Engine) searchOne(ctx context.Context, query string, numResults int) ([]model.SearchResult, error) {
	hits, err := e.search.Search(ctx, query, numResults)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.SearchResult{
			Title:         h.Title,
			URL:           h.URL,
			Text:          h.Text,
			Highlights:    h.Highlights,
			PublishedDate: h.PublishedDate,
		})
	}
	return results, nil
}
