package scout

import (
	"context"
	"sync"

	"github.com/sells-group/company-scout/pkg/anthropic"
	"github.com/sells-group/company-scout/pkg/exa"
)

// mockSearchClient implements exa.Client for testing.
type mockSearchClient struct {
	mu             sync.Mutex
	responses      map[string][]exa.Result
	defaultResults []exa.Result
	err            error
	calls          []string
}

func (m *mockSearchClient) Search(_ context.Context, query string, _ int) ([]exa.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.responses != nil {
		if results, ok := m.responses[query]; ok {
			return results, nil
		}
	}
	return m.defaultResults, nil
}

func (m *mockSearchClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockAnthropicClient implements anthropic.Client for testing. When
// handler is set it decides each response; otherwise response/err apply.
type mockAnthropicClient struct {
	handler  func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
	response *anthropic.MessageResponse
	err      error
}

func (m *mockAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if m.handler != nil {
		return m.handler(req)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// fastTestConfig keeps stagger and batch timing negligible in tests.
func fastTestConfig() Config {
	return Config{
		FastModel:   "fast-test-model",
		StrongModel: "strong-test-model",
		Stagger:     1,
	}
}
