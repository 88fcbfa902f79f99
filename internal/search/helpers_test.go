package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/candidex/candidex/internal/chunk"
	"github.com/candidex/candidex/internal/corpus"
)

// stubEmbedder maps known texts to fixed vectors. Unknown texts get a
// zero vector so they match nothing.
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
	fail    error
}

func newStubEmbedder(dims int, vectors map[string][]float32) *stubEmbedder {
	return &stubEmbedder{vectors: vectors, dims: dims}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return make([]float32, s.dims), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int                    { return s.dims }
func (s *stubEmbedder) ModelName() string                  { return "stub-model" }
func (s *stubEmbedder) Available(ctx context.Context) bool { return true }
func (s *stubEmbedder) Close() error                       { return nil }

// chunkSpec describes one fixture chunk with its embedding.
type chunkSpec struct {
	candidateID string
	chunkType   chunk.Type
	seq         int
	content     string
	vector      []float32
}

func buildCorpus(t *testing.T, specs []chunkSpec) *corpus.Corpus {
	t.Helper()
	chunks := make([]chunk.Chunk, len(specs))
	vectors := make([][]float32, len(specs))
	for i, s := range specs {
		chunks[i] = chunk.Chunk{
			ID:          chunk.MakeID(s.candidateID, s.chunkType, s.seq),
			Type:        s.chunkType,
			CandidateID: s.candidateID,
			Seq:         s.seq,
			Content:     s.content,
		}
		vectors[i] = s.vector
	}
	c, err := corpus.New(chunks, vectors)
	require.NoError(t, err)
	return c
}
