// Package exa provides a client for the Exa search provider's
// session-based tool protocol.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://mcp.exa.ai/mcp"
	defaultNumResults = 15
	searchToolName    = "web_search_exa"

	// sessionHeader carries the opaque session token issued by the
	// provider's initialize handshake.
	sessionHeader = "Mcp-Session-Id"

	// maxRateLimitRetries bounds retries after a rate-limit response.
	maxRateLimitRetries = 3
)

// ErrRateLimited indicates the provider signaled rate limiting. The signal
// is a textual "429" marker in the response body, not necessarily the HTTP
// status code.
var ErrRateLimited = eris.New("exa: rate limited")

// Result is a single search hit as returned by the provider.
type Result struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
}

// Client performs searches against the provider.
type Client interface {
	// Search issues a single query. A malformed-but-present response body
	// parses to an empty list; only a terminal transport failure after
	// exhausting retries returns an error.
	Search(ctx context.Context, query string, numResults int) ([]Result, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default provider endpoint.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithSessionTTL overrides the session cache TTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *httpClient) {
		c.sessionTTL = ttl
	}
}

// WithSessionManager injects a pre-built session manager (for testing).
func WithSessionManager(sm *SessionManager) Option {
	return func(c *httpClient) {
		c.sessions = sm
	}
}

// WithRateLimit sets the cooperative client-side request rate in requests
// per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	sessions   *SessionManager
	sessionTTL time.Duration
	limiter    *rate.Limiter

	// sleepFunc allows test injection of the backoff sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a search client. The session manager is owned by the
// client; all searches through this client share one cached session.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 45 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(5), 1),
		sleepFunc: sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessions == nil {
		c.sessions = NewSessionManager(c.sessionTTL, c.handshake)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// initializeRequest is the handshake body.
type initializeRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// handshake opens a provider session and returns the token from the
// response header.
func (c *httpClient) handshake(ctx context.Context) (string, error) {
	body, err := json.Marshal(initializeRequest{
		JSONRPC: "2.0",
		ID:      0,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-03-26",
			"clientInfo":      map[string]any{"name": "company-scout", "version": "1.0"},
			"capabilities":    map[string]any{},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "exa: marshal initialize")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "exa: create initialize request")
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "exa: initialize request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(sessionHeader)
	if token == "" {
		return "", eris.Errorf("exa: initialize returned no %s header (status %d)", sessionHeader, resp.StatusCode)
	}
	return token, nil
}

// searchArguments is the tool-invocation argument payload.
type searchArguments struct {
	Query         string         `json:"query"`
	NumResults    int            `json:"numResults"`
	Type          string         `json:"type"`
	UseAutoprompt bool           `json:"useAutoprompt"`
	Text          map[string]any `json:"text"`
	Highlights    map[string]any `json:"highlights"`
}

// callRequest is the tool-invocation body.
type callRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Method  string     `json:"method"`
	Params  callParams `json:"params"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments searchArguments `json:"arguments"`
}

func (c *httpClient) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	if numResults <= 0 {
		numResults = defaultNumResults
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "exa: rate limit wait")
	}

	var lastErr error
	for attempt := 0; attempt <= maxRateLimitRetries; attempt++ {
		if attempt > 0 {
			// Discard the session before each retry — the old one is
			// presumed burned — and back off 2^(attempt+1) seconds.
			c.sessions.Invalidate()
			delay := time.Duration(math.Pow(2, float64(attempt+1))) * time.Second
			zap.L().Warn("exa: retrying after rate limit",
				zap.String("query", query),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
			)
			if err := c.sleepFunc(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		results, err := c.searchOnce(ctx, query, numResults)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !eris.Is(err, ErrRateLimited) {
			return nil, err
		}
	}

	return nil, lastErr
}

// searchOnce performs a single tool invocation against the cached session.
func (c *httpClient) searchOnce(ctx context.Context, query string, numResults int) ([]Result, error) {
	token, err := c.sessions.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(callRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: callParams{
			Name: searchToolName,
			Arguments: searchArguments{
				Query:         query,
				NumResults:    numResults,
				Type:          "auto",
				UseAutoprompt: true,
				Text:          map[string]any{"maxCharacters": 1000},
				Highlights:    map[string]any{"numSentences": 3, "highlightsPerUrl": 3},
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "exa: marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "exa: create search request")
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "exa: search request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "exa: read search response")
	}

	// The provider signals rate limiting with a "429" marker in the body;
	// the HTTP status is not reliable for this.
	if strings.Contains(string(respBody), "429") {
		return nil, eris.Wrap(ErrRateLimited, "exa: search")
	}

	return ParseResults(respBody), nil
}

func (c *httpClient) setHeaders(req *http.Request, sessionToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if sessionToken != "" {
		req.Header.Set(sessionHeader, sessionToken)
	}
}
