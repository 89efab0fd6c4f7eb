package scout

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
	"github.com/sells-group/company-scout/pkg/anthropic"
	"github.com/sells-group/company-scout/pkg/exa"
)

var candidateIDPattern = regexp.MustCompile(`candidate_id: (\S+)`)

// scriptedAI answers the planning, extraction, and verification prompts
// of a full pipeline run.
func scriptedAI(cfg Config) *mockAnthropicClient {
	return &mockAnthropicClient{
		handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			prompt := req.Messages[0].Content
			switch {
			case req.Model == cfg.StrongModel:
				matches := candidateIDPattern.FindAllStringSubmatch(prompt, -1)
				var entries []string
				for i, m := range matches {
					score := 9 - 5*i // first candidate accepted, second rejected
					entries = append(entries, fmt.Sprintf(
						`{"candidate_id": %q, "company_name": "c", "url_confirmed": true, "matches_scope": true, "scope_evidence": "ev", "adjusted_score": %d, "description": "desc"}`,
						m[1], score))
				}
				return textResponse(`{"results": [` + strings.Join(entries, ",") + `]}`), nil
			case strings.Contains(prompt, "Search results:"):
				return textResponse(`{"companies": [
					{"name": "Acme", "website": "https://acme.com", "reason": "fits", "initial_score": 7, "sources": ["https://s1.com"]},
					{"name": "Acme Clone", "website": "https://www.acme.com", "reason": "dup", "initial_score": 9, "sources": []},
					{"name": "Beta", "website": "https://beta.io", "reason": "fits", "initial_score": 6, "sources": ["https://s2.com"]}
				]}`), nil
			default:
				return textResponse(`{"queries": ["q1", "q2"]}`), nil
			}
		},
	}
}

func TestScoutFullPipeline(t *testing.T) {
	cfg := fastTestConfig()
	search := &mockSearchClient{defaultResults: []exa.Result{
		{Title: "hit", URL: "https://hit.com", Text: "text"},
	}}
	e := NewEngine(search, scriptedAI(cfg), cfg)

	result, err := e.Scout(context.Background(), model.ScoutRequest{
		Criteria: "enterprise saas companies",
	}, progress.Nop())
	require.NoError(t, err)

	// Acme Clone deduplicated at extraction; Acme verified to 9, Beta to 4.
	require.Len(t, result.Companies, 2)
	assert.Equal(t, "Acme", result.Companies[0].Name)
	assert.Equal(t, 9, result.Companies[0].RelevanceScore)
	assert.Equal(t, model.StatusAccepted, result.Companies[0].Status)
	assert.True(t, result.Companies[0].Verified)

	assert.Equal(t, "Beta", result.Companies[1].Name)
	assert.Equal(t, model.StatusRejected, result.Companies[1].Status)

	assert.Equal(t, 1, result.InScopeCount)
	assert.Equal(t, 1, result.OutOfScopeCount)
	// 2 planned queries + 1 verification query per candidate.
	assert.Equal(t, 4, result.QueriesRun)
	assert.Equal(t, []string{"q1", "q2"}, result.SearchQueries)
	assert.Equal(t, 4, search.callCount())
}

func TestScoutDedupInvariant(t *testing.T) {
	cfg := fastTestConfig()
	search := &mockSearchClient{defaultResults: []exa.Result{{Title: "hit", URL: "https://hit.com"}}}
	e := NewEngine(search, scriptedAI(cfg), cfg)

	result, err := e.Scout(context.Background(), model.ScoutRequest{Criteria: "enterprise saas companies"}, nil)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for _, c := range result.Companies {
		_, dup := seen[c.Domain]
		assert.False(t, dup, "duplicate domain %s", c.Domain)
		seen[c.Domain] = struct{}{}
	}
}

func TestScoutProviderFullyDown(t *testing.T) {
	search := &mockSearchClient{err: eris.New("provider down")}
	ai := &mockAnthropicClient{err: eris.New("model down too")}
	e := NewEngine(search, ai, fastTestConfig())

	result, err := e.Scout(context.Background(), model.ScoutRequest{
		Criteria: "Enterprise SaaS companies",
	}, progress.Nop())

	// Degrades to a well-formed empty result, never an error.
	require.NoError(t, err)
	assert.Empty(t, result.Companies)
	assert.Zero(t, result.InScopeCount)
	assert.Greater(t, result.QueriesRun, 0)
	assert.Len(t, result.SearchQueries, 5) // fallback query set
}

func TestScoutInvalidCriteria(t *testing.T) {
	e := NewEngine(&mockSearchClient{}, &mockAnthropicClient{}, fastTestConfig())

	tests := []struct {
		name     string
		criteria string
	}{
		{"too short", "saas"},
		{"empty", ""},
		{"whitespace only", "        \t  "},
		{"too long", strings.Repeat("x", 1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Scout(context.Background(), model.ScoutRequest{Criteria: tt.criteria}, progress.Nop())
			require.Error(t, err)
		})
	}
}

func TestScoutCriteriaBoundsCountRunes(t *testing.T) {
	search := &mockSearchClient{err: eris.New("provider down")}
	ai := &mockAnthropicClient{err: eris.New("model down")}
	e := NewEngine(search, ai, fastTestConfig())

	// 9 runes but 27 bytes: still too short.
	_, err := e.Scout(context.Background(), model.ScoutRequest{Criteria: strings.Repeat("医", 9)}, progress.Nop())
	require.Error(t, err)

	// 400 runes but 1200 bytes: within the 1000-character bound.
	_, err = e.Scout(context.Background(), model.ScoutRequest{Criteria: strings.Repeat("医", 400)}, progress.Nop())
	require.NoError(t, err)
}

func TestScoutMaxResultsCap(t *testing.T) {
	// 30 candidates all scoring above threshold; maxResults=5 keeps the
	// five highest.
	var entries []string
	for i := 0; i < 30; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"name": "Co%d", "website": "https://co%d.com", "reason": "fits", "initial_score": %d, "sources": []}`,
			i, i, 5+i%6))
	}
	extractJSON := `{"companies": [` + strings.Join(entries, ",") + `]}`

	ai := &mockAnthropicClient{
		handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			if strings.Contains(req.Messages[0].Content, "Search results:") {
				return textResponse(extractJSON), nil
			}
			if strings.Contains(req.Messages[0].Content, "candidate_id:") {
				// Force the fallback path so initial scores carry through.
				return nil, eris.New("verification skipped")
			}
			return textResponse(`{"queries": ["q1"]}`), nil
		},
	}
	search := &mockSearchClient{defaultResults: []exa.Result{{Title: "hit", URL: "https://hit.com"}}}
	e := NewEngine(search, ai, fastTestConfig())

	result, err := e.Scout(context.Background(), model.ScoutRequest{
		Criteria:   "enterprise saas companies",
		MaxResults: 5,
	}, progress.Nop())
	require.NoError(t, err)

	require.Len(t, result.Companies, 5)
	assert.Equal(t, 5, result.InScopeCount)
	for _, c := range result.Companies {
		assert.Equal(t, 10, c.RelevanceScore)
	}
}

func TestScoutEmitsStageEvents(t *testing.T) {
	cfg := fastTestConfig()
	search := &mockSearchClient{defaultResults: []exa.Result{{Title: "hit", URL: "https://hit.com"}}}
	e := NewEngine(search, scriptedAI(cfg), cfg)

	var mu sync.Mutex
	stages := make(map[string]bool)
	rep := progress.Func(func(ev progress.Event) {
		mu.Lock()
		stages[ev.Stage] = true
		mu.Unlock()
	})

	_, err := e.Scout(context.Background(), model.ScoutRequest{Criteria: "enterprise saas companies"}, rep)
	require.NoError(t, err)

	for _, stage := range []string{
		progress.StagePlanning,
		progress.StageSearch,
		progress.StageExtract,
		progress.StageVerifySearch,
		progress.StageVerifyScore,
		progress.StageRank,
		progress.StageComplete,
	} {
		assert.True(t, stages[stage], "missing stage %s", stage)
	}
}
