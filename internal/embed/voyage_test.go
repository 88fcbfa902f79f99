package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoyage struct {
	t        *testing.T
	requests atomic.Int64
	// respond builds the response for one request; nil uses the default
	// in-order echo.
	respond func(w http.ResponseWriter, req voyageEmbedRequest)
}

func (f *fakeVoyage) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		assert.Equal(f.t, "/v1/embeddings", r.URL.Path)
		assert.Equal(f.t, "Bearer test-key", r.Header.Get("Authorization"))

		var req voyageEmbedRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		if f.respond != nil {
			f.respond(w, req)
			return
		}

		resp := voyageEmbedResponse{Model: req.Model}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(text)), 1, 2}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestVoyage(t *testing.T, f *fakeVoyage, cfg VoyageConfig) (*VoyageEmbedder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg.Host = srv.URL
	cfg.APIKey = "test-key"
	emb, err := NewVoyageEmbedder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = emb.Close() })
	return emb, srv
}

func TestVoyageEmbedder_Embed_ReturnsVector(t *testing.T) {
	fake := &fakeVoyage{t: t}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	vec, err := emb.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1, 2}, vec)
	assert.Equal(t, 3, emb.Dimensions(), "dimensions detected from first response")
}

func TestVoyageEmbedder_EmbedBatch_SplitsByBatchSize(t *testing.T) {
	fake := &fakeVoyage{t: t}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{BatchSize: 2})

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int64(3), fake.requests.Load(), "5 texts at batch size 2 means 3 requests")
	assert.Equal(t, float32(5), vecs[4][0])
}

func TestVoyageEmbedder_OutOfOrderIndices_Reordered(t *testing.T) {
	fake := &fakeVoyage{t: t}
	fake.respond = func(w http.ResponseWriter, req voyageEmbedRequest) {
		resp := voyageEmbedResponse{Model: req.Model}
		// Reverse order; index must be authoritative.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i)}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	vecs, err := emb.EmbedBatch(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, vecs[0])
	assert.Equal(t, []float32{1}, vecs[1])
	assert.Equal(t, []float32{2}, vecs[2])
}

func TestVoyageEmbedder_ServerError_IsUnavailable(t *testing.T) {
	fake := &fakeVoyage{t: t}
	fake.respond = func(w http.ResponseWriter, _ voyageEmbedRequest) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	_, err := emb.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVoyageEmbedder_CountMismatch_IsUnavailable(t *testing.T) {
	fake := &fakeVoyage{t: t}
	fake.respond = func(w http.ResponseWriter, req voyageEmbedRequest) {
		resp := voyageEmbedResponse{Model: req.Model}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{1}, Index: 0})
		_ = json.NewEncoder(w).Encode(resp)
	}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	_, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVoyageEmbedder_Cancellation_SurfacesContextError(t *testing.T) {
	fake := &fakeVoyage{t: t}
	fake.respond = func(w http.ResponseWriter, req voyageEmbedRequest) {
		time.Sleep(200 * time.Millisecond)
	}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := emb.Embed(ctx, "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVoyageEmbedder_EmptyBatch(t *testing.T) {
	fake := &fakeVoyage{t: t}
	emb, _ := newTestVoyage(t, fake, VoyageConfig{})

	vecs, err := emb.EmbedBatch(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Equal(t, int64(0), fake.requests.Load())
}

func TestVoyageEmbedder_Defaults(t *testing.T) {
	emb, err := NewVoyageEmbedder(VoyageConfig{APIKey: "k"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, "voyage-2", emb.ModelName())
	assert.Equal(t, DefaultDimensions, emb.Dimensions())
	assert.True(t, emb.Available(context.Background()))
}

func TestVoyageEmbedder_Available_FalseWithoutKey(t *testing.T) {
	emb, err := NewVoyageEmbedder(VoyageConfig{})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.False(t, emb.Available(context.Background()))
}
