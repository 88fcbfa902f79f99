// Package search combines semantic and keyword retrieval over a
// candidate corpus. Hybrid queries fuse both rankings with Reciprocal
// Rank Fusion; weighted queries score candidates against multiple
// criteria at once; an optional cross-encoder reranker refines the top
// of any ranking.
package search

import (
	"time"
)

// Source identifies which stage produced a result's score.
type Source string

const (
	SourceSemantic Source = "semantic"
	SourceLexical  Source = "lexical"
	SourceFused    Source = "fused"
	SourceWeighted Source = "weighted"
	SourceReranked Source = "reranked"
)

// Result is one ranked entry. For weighted queries a result stands for
// a candidate and ChunkID names the best-matching chunk.
type Result struct {
	ChunkID     string
	CandidateID string
	Content     string

	// Score is non-increasing down the list. Its meaning depends on
	// Source: cosine similarity, BM25, RRF sum, weighted total, or
	// reranker relevance.
	Score float64

	// Rank is dense, starting at 1.
	Rank   int
	Source Source

	// SemanticRank and LexicalRank are the 1-indexed positions in the
	// pre-fusion lists, 0 when absent from that list.
	SemanticRank int
	LexicalRank  int
}

// ResultSet is a ranked list plus degradation state. Degraded is true
// when an optional backend (lexical index, reranker) was skipped and
// the results came from the remaining stages.
type ResultSet struct {
	Results  []Result
	Degraded bool
}

// Weights controls the relative influence of the two hybrid rankings.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights favors semantic similarity over keyword overlap.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Lexical: 0.3}
}

// Valid reports whether the weights can drive a fusion: none negative,
// not both zero.
func (w Weights) Valid() bool {
	if w.Semantic < 0 || w.Lexical < 0 {
		return false
	}
	return w.Semantic > 0 || w.Lexical > 0
}

// Criterion is one axis of a weighted query.
type Criterion struct {
	// Name selects the chunk-type policy (experience, education,
	// skills, company). Unknown names match every chunk type.
	Name   string
	Query  string
	Weight float64
}

// Active reports whether the criterion participates in scoring.
func (c Criterion) Active() bool {
	return c.Query != "" && c.Weight > 0
}

// EngineConfig holds query-time tuning knobs.
type EngineConfig struct {
	// RRFConstant is the smoothing constant k in the RRF formula.
	RRFConstant int

	// RecallFactor over-fetches each hybrid sub-search: both backends
	// are asked for RecallFactor×k results before fusion.
	RecallFactor int

	// RecallMultiplier bounds how many upstream results feed the
	// reranker: k×RecallMultiplier.
	RecallMultiplier int

	DefaultLimit int
	MaxLimit     int

	// Timeout bounds a single query end to end.
	Timeout time.Duration
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		RRFConstant:      DefaultRRFConstant,
		RecallFactor:     3,
		RecallMultiplier: 10,
		DefaultLimit:     10,
		MaxLimit:         20,
		Timeout:          30 * time.Second,
	}
}
