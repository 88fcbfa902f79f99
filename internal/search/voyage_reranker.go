package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// VoyageRerankerConfig configures the Voyage AI rerank provider.
type VoyageRerankerConfig struct {
	// Host is the API base URL (default: https://api.voyageai.com).
	Host string

	// Model is the rerank model (default: rerank-lite-1).
	Model string

	// APIKey authenticates requests.
	APIKey string

	// Timeout bounds a single rerank request.
	Timeout time.Duration
}

// VoyageReranker scores query-document pairs via the Voyage AI rerank
// endpoint.
type VoyageReranker struct {
	client    *http.Client
	transport *http.Transport
	config    VoyageRerankerConfig
}

var _ Reranker = (*VoyageReranker)(nil)

// NewVoyageReranker creates a Voyage rerank client.
func NewVoyageReranker(cfg VoyageRerankerConfig) *VoyageReranker {
	if cfg.Host == "" {
		cfg.Host = "https://api.voyageai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "rerank-lite-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}
	// No client-level timeout: each request carries its own context
	// deadline so callers keep control of cancellation.
	return &VoyageReranker{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}
}

type voyageRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopK      int      `json:"top_k,omitempty"`
}

type voyageRerankResponse struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"data"`
}

// Rerank scores documents against the query, best first.
func (r *VoyageReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	body, err := json.Marshal(voyageRerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.config.Model,
		TopK:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.config.Host+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrRerankerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRerankerUnavailable, resp.StatusCode, string(msg))
	}

	var parsed voyageRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRerankerUnavailable, err)
	}

	results := make([]RerankResult, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(documents) {
			return nil, fmt.Errorf("%w: rerank index %d out of range", ErrRerankerUnavailable, d.Index)
		}
		results = append(results, RerankResult{Index: d.Index, Score: d.RelevanceScore})
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	return results, nil
}

// Available reports whether the provider is usable. Voyage exposes no
// health endpoint, so this only checks that credentials are present.
func (r *VoyageReranker) Available(_ context.Context) bool {
	return r.config.APIKey != ""
}

// Close releases idle connections.
func (r *VoyageReranker) Close() error {
	r.transport.CloseIdleConnections()
	return nil
}
