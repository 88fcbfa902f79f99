package search

import (
	"context"
)

// RerankResult is one scored document from a cross-encoder.
type RerankResult struct {
	// Index is the position in the input documents slice.
	Index int
	// Score is the relevance score, higher is better.
	Score float64
}

// Reranker reranks search results using a cross-encoder model.
// Cross-encoders jointly encode query-document pairs for more accurate
// relevance than bi-encoders, at higher latency, so they only see the
// already-shortlisted top of a ranking.
type Reranker interface {
	// Rerank scores documents against the query and returns results
	// sorted by score descending. topK of 0 returns all.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)

	// Available checks whether the reranker can serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}
