package exa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer fakes the provider: initialize requests get a session
// header, tools/call requests are answered by handler.
func newTestServer(t *testing.T, handler func(w http.ResponseWriter, callCount int64)) (*httptest.Server, *atomic.Int64, *atomic.Int64) {
	t.Helper()
	var handshakes, searches atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var rpc struct {
			Method string `json:"method"`
		}
		_ = json.Unmarshal(body, &rpc)

		switch rpc.Method {
		case "initialize":
			n := handshakes.Add(1)
			w.Header().Set(sessionHeader, "sess-"+string(rune('0'+n)))
			w.WriteHeader(http.StatusOK)
		case "tools/call":
			n := searches.Add(1)
			handler(w, n)
		default:
			t.Errorf("unexpected method %q", rpc.Method)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &handshakes, &searches
}

func newTestClient(srv *httptest.Server) *httpClient {
	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
	).(*httpClient)
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestSearch_ParsesJSONBody(t *testing.T) {
	srv, handshakes, _ := newTestServer(t, func(w http.ResponseWriter, _ int64) {
		_, _ = w.Write([]byte(`{"results":[{"title":"Acme","url":"https://acme.com"}]}`))
	})
	c := newTestClient(srv)

	results, err := c.Search(context.Background(), "widget companies", 15)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme", results[0].Title)
	assert.Equal(t, int64(1), handshakes.Load())
}

func TestSearch_ReusesSessionAcrossQueries(t *testing.T) {
	srv, handshakes, searches := newTestServer(t, func(w http.ResponseWriter, _ int64) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	c := newTestClient(srv)

	for i := 0; i < 4; i++ {
		_, err := c.Search(context.Background(), "q", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), handshakes.Load(), "one handshake serves all queries within the TTL")
	assert.Equal(t, int64(4), searches.Load())
}

func TestSearch_RetriesOnRateLimitMarker(t *testing.T) {
	srv, handshakes, _ := newTestServer(t, func(w http.ResponseWriter, n int64) {
		if n <= 2 {
			// Rate-limit marker in the body, deliberately with a 200 status.
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded (429)"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"Recovered","url":"https://r.com"}]}`))
	})
	c := newTestClient(srv)

	results, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Recovered", results[0].Title)
	// Session is discarded before each retry, so two extra handshakes.
	assert.Equal(t, int64(3), handshakes.Load())
}

func TestSearch_GivesUpAfterRetryBudget(t *testing.T) {
	srv, _, searches := newTestServer(t, func(w http.ResponseWriter, _ int64) {
		_, _ = w.Write([]byte(`429 Too Many Requests`))
	})
	c := newTestClient(srv)

	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(1+maxRateLimitRetries), searches.Load())
}

func TestSearch_MalformedBodyIsEmptyNotError(t *testing.T) {
	srv, _, _ := newTestServer(t, func(w http.ResponseWriter, _ int64) {
		_, _ = w.Write([]byte("<html>totally unexpected</html>"))
	})
	c := newTestClient(srv)

	results, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_HandshakeFailureIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No session header on initialize.
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv)

	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), sessionHeader)
}

func TestSearch_SendsToolInvocationShape(t *testing.T) {
	var captured searchArguments
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var rpc struct {
			Method string `json:"method"`
			Params struct {
				Name      string          `json:"name"`
				Arguments searchArguments `json:"arguments"`
			} `json:"params"`
		}
		_ = json.Unmarshal(body, &rpc)
		if rpc.Method == "initialize" {
			w.Header().Set(sessionHeader, "s")
			return
		}
		assert.Equal(t, searchToolName, rpc.Params.Name)
		captured = rpc.Params.Arguments
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv)

	_, err := c.Search(context.Background(), "telehealth GLP-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "telehealth GLP-1", captured.Query)
	assert.Equal(t, defaultNumResults, captured.NumResults, "numResults defaults when unset")
	assert.Equal(t, "auto", captured.Type)
	assert.True(t, captured.UseAutoprompt)
}

func TestSearch_CanceledContextStopsRetries(t *testing.T) {
	srv, _, searches := newTestServer(t, func(w http.ResponseWriter, _ int64) {
		_, _ = w.Write([]byte(`429`))
	})
	c := newTestClient(srv)
	c.sleepFunc = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "q", 5)
	require.Error(t, err)
	assert.LessOrEqual(t, searches.Load(), int64(1))
}
