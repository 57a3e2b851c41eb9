// Package esclient is the thin adapter over the Elasticsearch-compatible
// search backend (spec §4.1, component C1): create_index, index, bulk,
// search, delete_by_query, count, delete_index. Transport is modeled on the
// teacher's pkg/rpc.HTTPClient — a token-bucket rate limiter plus a
// per-endpoint circuit breaker — generalized from "blockchain RPC endpoint"
// to "search-backend HTTP endpoint".
package esclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Opts configures a Client.
type Opts struct {
	Endpoints       []string
	IndexName       string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// Client is a rate-limited, circuit-breaking HTTP client for the search
// backend's document API. Safe for concurrent use: pkg/projector fans out
// pub_keys/account_controls writes across an errgroup during newaccount/
// updateauth projection, so the token bucket and per-endpoint breaker state
// are guarded by atomics/a mutex rather than assuming a single caller.
type Client struct {
	endpoints []string
	indexName string
	client    *http.Client

	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value

	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// New creates a Client from opts, applying the same defaults the teacher's
// RPC client applies (20rps/40burst/3-failure breaker/5s cooldown).
func New(o Opts) *Client {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}
	if o.IndexName == "" {
		o.IndexName = "eos"
	}

	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.Timeout}
	} else if httpClient.Timeout == 0 {
		httpClient.Timeout = o.Timeout
	}

	c := &Client{
		endpoints:        normalizeEndpoints(o.Endpoints),
		indexName:        o.IndexName,
		client:           httpClient,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// normalizeEndpoints strips trailing slashes and drops duplicates, preserving
// the order the caller listed endpoints in (first occurrence wins), so the
// in-order failover in doJSON doesn't hit the same backend twice per call.
func normalizeEndpoints(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, ep := range in {
		ep = strings.TrimRight(ep, "/")
		if !seen[ep] {
			seen[ep] = true
			out = append(out, ep)
		}
	}
	return out
}

func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

func (c *Client) acquire() {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return
		}
		time.Sleep(c.refillEvery / 2)
	}
}

func (c *Client) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *Client) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

// doJSON sends a JSON request/response, cycling endpoints on failure.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if len(c.endpoints) == 0 {
		return fmt.Errorf("no search backend endpoints configured")
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}
		c.acquire()

		var body io.Reader
		if payload != nil {
			b, mErr := json.Marshal(payload)
			if mErr != nil {
				return mErr
			}
			body = bytes.NewReader(b)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, ep+path, body)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = &ConnectionError{Endpoint: ep, Err: err}
			c.noteFailure(ep)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		// Drain any remainder so the transport can reuse the connection, then
		// close regardless of whether the read above succeeded.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &ResponseCodeError{Endpoint: ep, StatusCode: resp.StatusCode, Body: string(respBody)}
			c.noteFailure(ep)
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = &ResponseCodeError{Endpoint: ep, StatusCode: resp.StatusCode, Body: string(respBody)}
			continue
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				lastErr = err
				continue
			}
		}
		return nil
	}
	if lastErr == nil {
		return fmt.Errorf("all endpoints unavailable: circuit breaker open")
	}
	return lastErr
}

// CreateIndex is idempotent; it establishes the index schema (spec §4.1).
func (c *Client) CreateIndex(ctx context.Context, mappings map[string]any) error {
	return c.doJSON(ctx, http.MethodPut, "/"+c.indexName, mappings, nil)
}

// DeleteIndex drops the whole index.
func (c *Client) DeleteIndex(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/"+c.indexName, nil, nil)
}

// Index upserts doc under docType. If id is empty a new document is created.
func (c *Client) Index(ctx context.Context, docType string, doc any, id string) error {
	path := fmt.Sprintf("/%s/%s", c.indexName, docType)
	if id != "" {
		path = fmt.Sprintf("/%s/%s/%s", c.indexName, docType, id)
		return c.doJSON(ctx, http.MethodPut, path, doc, nil)
	}
	return c.doJSON(ctx, http.MethodPost, path, doc, nil)
}

// BulkItem is one document to index in a Bulk call.
type BulkItem struct {
	Doc any
	ID  string
}

// Bulk indexes docs under docType in one request. On partial failure it
// returns a BulkFail aggregating every failed item's error (spec §4.1).
// Grounded on the "SameIndexBulkData" concept from original_source: all
// items share one index, one type.
func (c *Client) Bulk(ctx context.Context, docType string, docs []BulkItem) error {
	if len(docs) == 0 {
		return nil
	}

	requestID := uuid.NewString()
	var buf bytes.Buffer
	for _, item := range docs {
		action := map[string]any{"index": map[string]any{"_index": c.indexName, "_type": docType}}
		if item.ID != "" {
			action["index"].(map[string]any)["_id"] = item.ID
		}
		ab, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("bulk request %s: marshal action: %w", requestID, err)
		}
		db, err := json.Marshal(item.Doc)
		if err != nil {
			return fmt.Errorf("bulk request %s: marshal doc: %w", requestID, err)
		}
		buf.Write(ab)
		buf.WriteByte('\n')
		buf.Write(db)
		buf.WriteByte('\n')
	}

	var resp struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int    `json:"status"`
				Error  string `json:"error,omitempty"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := c.doJSON(ctx, http.MethodPost, "/_bulk", json.RawMessage(buf.Bytes()), &resp); err != nil {
		return fmt.Errorf("bulk request %s: %w", requestID, err)
	}
	if !resp.Errors {
		return nil
	}

	var combined error
	for i, item := range resp.Items {
		if item.Index.Status >= 300 {
			combined = multierr.Append(combined, &BulkItemError{Index: i, Err: fmt.Errorf("%s", item.Index.Error)})
		}
	}
	if combined != nil {
		return &BulkFail{RequestID: requestID, Items: combined}
	}
	return nil
}

// SearchResult mirrors the backend's hit shape (spec §4.1).
type SearchResult struct {
	Hits struct {
		Total int `json:"total"`
		Hits  []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs query against docType and returns the raw hit shape.
func (c *Client) Search(ctx context.Context, docType string, query map[string]any) (*SearchResult, error) {
	var out SearchResult
	path := fmt.Sprintf("/%s/%s/_search", c.indexName, docType)
	if err := c.doJSON(ctx, http.MethodPost, path, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteByQuery removes every document of docType matching query.
func (c *Client) DeleteByQuery(ctx context.Context, docType string, query map[string]any) error {
	path := fmt.Sprintf("/%s/%s/_delete_by_query", c.indexName, docType)
	return c.doJSON(ctx, http.MethodPost, path, query, nil)
}

// Count returns the number of documents of docType.
func (c *Client) Count(ctx context.Context, docType string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/%s/%s/_count", c.indexName, docType)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// FindByTerm runs {"query":{"term":{field:value}}} against docType and
// returns the hit's source and id, matching find_account/find_block in
// original_source. It reports found only when the backend reports exactly
// one hit; zero or several hits both come back as not found.
func (c *Client) FindByTerm(ctx context.Context, docType, field, value string) (json.RawMessage, string, bool, error) {
	res, err := c.Search(ctx, docType, map[string]any{
		"query": map[string]any{"term": map[string]any{field: value}},
	})
	if err != nil {
		return nil, "", false, err
	}
	if res.Hits.Total != 1 || len(res.Hits.Hits) == 0 {
		return nil, "", false, nil
	}
	return res.Hits.Hits[0].Source, res.Hits.Hits[0].ID, true, nil
}

// DeleteByQueryTerms builds and issues the two-term delete-by-query shape
// documented in spec §6 for pub_keys/account_controls cleanup.
func DeleteByQueryTerms(field1, value1, field2, value2 string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{"term": map[string]any{field1: value1}},
					{"term": map[string]any{field2: value2}},
				},
			},
		},
	}
}

