package embed

import (
	"context"
	"sync/atomic"
)

// mockEmbedder is a test double that counts calls and returns a
// deterministic per-text vector.
type mockEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchTexts atomic.Int64
	dimensions int
	modelName  string
	failWith   error
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{
		dimensions: dims,
		modelName:  "mock-model",
	}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, m.dimensions)
	for i := range vec {
		vec[i] = float32(len(text)) + float32(i)*0.001
	}
	return vec
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.batchTexts.Add(int64(len(texts)))
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dimensions }

func (m *mockEmbedder) ModelName() string { return m.modelName }

func (m *mockEmbedder) Available(ctx context.Context) bool { return true }

func (m *mockEmbedder) Close() error { return nil }
