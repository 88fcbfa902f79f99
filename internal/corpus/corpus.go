// Package corpus holds the embedded chunk collection and serves exact
// cosine top-k queries over it. A Corpus is immutable after construction;
// rebuilds produce a fresh Corpus that the Manager swaps in atomically,
// so readers never observe a partially built collection.
package corpus

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/candidex/candidex/internal/chunk"
)

// ErrNotBuilt is returned when a query targets a dataset that has no
// published corpus.
var ErrNotBuilt = errors.New("corpus not built")

// Hit is one scored chunk from a similarity search.
type Hit struct {
	Index       int
	ChunkID     string
	CandidateID string
	// Score is cosine similarity, in [-1, 1].
	Score float64
}

// Corpus is an immutable set of chunks with their embeddings. Vector
// norms are precomputed at construction so each query costs one dot
// product per chunk.
type Corpus struct {
	chunks  []chunk.Chunk
	vectors [][]float32
	norms   []float64
	dims    int

	// byCandidate maps candidate ID to chunk indices, in insertion order.
	byCandidate map[string][]int
	byID        map[string]int
}

// New constructs a corpus from parallel chunk and vector slices.
func New(chunks []chunk.Chunk, vectors [][]float32) (*Corpus, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	dims := 0
	norms := make([]float64, len(vectors))
	byCandidate := make(map[string][]int)
	byID := make(map[string]int, len(chunks))
	for i, vec := range vectors {
		if dims == 0 {
			dims = len(vec)
		} else if len(vec) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(vec), dims)
		}
		norms[i] = vectorNorm(vec)
		byCandidate[chunks[i].CandidateID] = append(byCandidate[chunks[i].CandidateID], i)
		byID[chunks[i].ID] = i
	}

	return &Corpus{
		chunks:      chunks,
		vectors:     vectors,
		norms:       norms,
		dims:        dims,
		byCandidate: byCandidate,
		byID:        byID,
	}, nil
}

// ChunkByID returns the chunk with the given ID, if present.
func (c *Corpus) ChunkByID(id string) (chunk.Chunk, bool) {
	i, ok := c.byID[id]
	if !ok {
		return chunk.Chunk{}, false
	}
	return c.chunks[i], true
}

// Len returns the number of chunks.
func (c *Corpus) Len() int { return len(c.chunks) }

// Dimensions returns the embedding dimension, 0 for an empty corpus.
func (c *Corpus) Dimensions() int { return c.dims }

// Chunk returns the chunk at index i.
func (c *Corpus) Chunk(i int) chunk.Chunk { return c.chunks[i] }

// Chunks returns all chunks in insertion order. The slice is shared;
// callers must not modify it.
func (c *Corpus) Chunks() []chunk.Chunk { return c.chunks }

// CandidateChunks returns the chunks of one candidate in insertion
// order, or nil when the candidate is absent.
func (c *Corpus) CandidateChunks(candidateID string) []chunk.Chunk {
	idxs, ok := c.byCandidate[candidateID]
	if !ok {
		return nil
	}
	out := make([]chunk.Chunk, len(idxs))
	for i, idx := range idxs {
		out[i] = c.chunks[idx]
	}
	return out
}

// Candidates returns the number of distinct candidates.
func (c *Corpus) Candidates() int { return len(c.byCandidate) }

// Search returns the top-k chunks by cosine similarity to query.
// Equal scores break toward the lower chunk index. A non-nil filter
// restricts the scan to the listed candidates via the reverse index.
func (c *Corpus) Search(query []float32, k int, filter []string) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	if len(c.chunks) > 0 && len(query) != c.dims {
		return nil, fmt.Errorf("query has %d dimensions, corpus has %d", len(query), c.dims)
	}

	qnorm := vectorNorm(query)

	var candidates []int
	if filter != nil {
		for _, id := range filter {
			candidates = append(candidates, c.byCandidate[id]...)
		}
		sort.Ints(candidates)
	} else {
		candidates = make([]int, len(c.chunks))
		for i := range candidates {
			candidates[i] = i
		}
	}

	hits := make([]Hit, 0, len(candidates))
	for _, i := range candidates {
		hits = append(hits, Hit{
			Index:       i,
			ChunkID:     c.chunks[i].ID,
			CandidateID: c.chunks[i].CandidateID,
			Score:       cosine(query, qnorm, c.vectors[i], c.norms[i]),
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Index < hits[b].Index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Scorer returns a function that scores the chunk at index i against
// query. The query norm is computed once, so callers can scan many
// chunks cheaply.
func (c *Corpus) Scorer(query []float32) func(i int) float64 {
	qnorm := vectorNorm(query)
	return func(i int) float64 {
		return cosine(query, qnorm, c.vectors[i], c.norms[i])
	}
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine computes similarity from a dot product and precomputed norms.
// A zero-norm vector on either side scores 0.
func cosine(q []float32, qnorm float64, v []float32, vnorm float64) float64 {
	if qnorm == 0 || vnorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	score := dot / (qnorm * vnorm)
	// Floating point can nudge past the bounds.
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}
