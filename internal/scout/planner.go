package scout

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const plannerPrompt = `You are a search-query strategist for company research.

Research brief: %s

Generate 7-10 diverse web search queries that together would surface companies matching the brief. Mix direct queries, industry-list queries, and queries targeting startup/company databases.

Respond with ONLY a JSON object in this exact format:
{"queries": ["query one", "query two", ...]}`

// planQueries asks the fast model for 7-10 diverse queries and falls
// back to a deterministic template set if the call or its parse fails.
// It never returns an empty list.
func (e *Engine) planQueries(ctx context.Context, criteria string) []string {
	text, err := e.callModel(ctx, e.cfg.FastModel, "query_planning", fmt.Sprintf(plannerPrompt, criteria), 1024)
	if err != nil {
		zap.L().Warn("scout: query planning model call failed, using fallback queries", zap.Error(err))
		return fallbackQueries(criteria)
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		zap.L().Warn("scout: failed to parse planned queries, using fallback", zap.Error(err))
		return fallbackQueries(criteria)
	}

	var queries []string
	for _, q := range parsed.Queries {
		if q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return fallbackQueries(criteria)
	}
	return queries
}

// fallbackQueries derives a deterministic 5-query set from the criteria.
func fallbackQueries(criteria string) []string {
	return []string{
		criteria,
		criteria + " companies",
		criteria + " startups",
		"best " + criteria,
		"site:crunchbase.com " + criteria,
	}
}
