package esclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Opts{Endpoints: []string{srv.URL}, IndexName: "eos"})
	return c, srv
}

func TestClient_IndexAndSearchRoundTrip(t *testing.T) {
	var lastMethod, lastPath string
	_ = lastPath
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lastMethod, lastPath = r.Method, r.URL.Path
		if r.URL.Path == "/eos/accounts/alice" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path == "/eos/accounts/_search" {
			_ = json.NewEncoder(w).Encode(SearchResult{
				Hits: struct {
					Total int `json:"total"`
					Hits  []struct {
						ID     string          `json:"_id"`
						Source json.RawMessage `json:"_source"`
					} `json:"hits"`
				}{Total: 1, Hits: []struct {
					ID     string          `json:"_id"`
					Source json.RawMessage `json:"_source"`
				}{{ID: "alice", Source: json.RawMessage(`{"name":"alice"}`)}}},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.Index(context.Background(), "accounts", map[string]any{"name": "alice"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, lastMethod)

	source, id, found, err := c.FindByTerm(context.Background(), "accounts", "name", "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", id)
	assert.JSONEq(t, `{"name":"alice"}`, string(source))
}

func TestClient_BulkAggregatesItemErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": true,
			"items": []map[string]any{
				{"index": map[string]any{"status": 201}},
				{"index": map[string]any{"status": 409, "error": "conflict"}},
			},
		})
	})

	err := c.Bulk(context.Background(), "pub_keys", []BulkItem{
		{Doc: map[string]any{"a": 1}},
		{Doc: map[string]any{"a": 2}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
}

func TestClient_BulkNoItemsIsNoop(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	err := c.Bulk(context.Background(), "pub_keys", nil)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestClient_DeleteByQueryTerms_Shape(t *testing.T) {
	q := DeleteByQueryTerms("account", "alice", "permission", "owner")
	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"bool":{"must":[{"term":{"account":"alice"}},{"term":{"permission":"owner"}}]}}}`, string(b))
}

func TestClient_CircuitBreakerOpensAfterFailures(t *testing.T) {
	failures := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		failures++
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.breakerThreshold = 2

	for i := 0; i < 2; i++ {
		_ = c.CreateIndex(context.Background(), map[string]any{})
	}
	before := failures
	err := c.CreateIndex(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, before, failures, "breaker should short-circuit without hitting the endpoint again")
}

func TestClient_CountParsesResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 42})
	})
	n, err := c.Count(context.Background(), "accounts")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
