package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// VoyageConfig configures the Voyage AI embedding provider.
type VoyageConfig struct {
	// Host is the API base URL (default: https://api.voyageai.com).
	Host string

	// Model is the embedding model (default: voyage-2).
	Model string

	// APIKey authenticates requests.
	APIKey string

	// Dimensions is the embedding dimension; 0 means auto-detect from
	// the first response.
	Dimensions int

	// BatchSize caps texts per request (default: 128).
	BatchSize int

	// Timeout bounds a single embedding request.
	Timeout time.Duration

	// PoolSize sizes the HTTP connection pool.
	PoolSize int
}

// VoyageEmbedder generates embeddings via the Voyage AI HTTP API.
type VoyageEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    VoyageConfig
	dims      int
}

var _ Embedder = (*VoyageEmbedder)(nil)

// NewVoyageEmbedder creates a Voyage embedding client.
func NewVoyageEmbedder(cfg VoyageConfig) (*VoyageEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = "https://api.voyageai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "voyage-2"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	// No client-level timeout: each request carries its own context
	// deadline so callers keep control of cancellation.
	return &VoyageEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}, nil
}

type voyageEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates an embedding for a single text.
func (e *VoyageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Inputs beyond the
// configured batch size are split across sequential requests; a failed
// request fails the whole call so the caller can retry just that batch.
func (e *VoyageEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)
	}
	return results, nil
}

func (e *VoyageEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(voyageEmbedRequest{Input: texts, Model: e.config.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		// Timeouts and connection failures both count as outages; the
		// parent context's cancellation still surfaces as such.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(msg))
	}

	var parsed voyageEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(parsed.Data), len(texts))
	}

	// The API may return entries out of order; index is authoritative.
	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrUnavailable, d.Index)
		}
		vecs[d.Index] = d.Embedding
	}

	if e.dims == 0 && len(vecs) > 0 {
		e.dims = len(vecs[0])
		slog.Debug("detected embedding dimensions",
			slog.String("model", e.config.Model),
			slog.Int("dims", e.dims))
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *VoyageEmbedder) Dimensions() int {
	if e.dims == 0 {
		return DefaultDimensions
	}
	return e.dims
}

// ModelName returns the model identifier.
func (e *VoyageEmbedder) ModelName() string {
	return e.config.Model
}

// Available reports whether the provider is usable. Voyage exposes no
// health endpoint, so this only checks that credentials are present.
func (e *VoyageEmbedder) Available(_ context.Context) bool {
	return e.config.APIKey != ""
}

// Close releases idle connections.
func (e *VoyageEmbedder) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}
