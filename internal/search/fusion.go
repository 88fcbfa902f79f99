package search

import (
	"math"
	"sort"

	"github.com/candidex/candidex/internal/corpus"
	"github.com/candidex/candidex/internal/lexical"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// the value validated across domains (Azure AI Search, OpenSearch).
const DefaultRRFConstant = 60

// Fusion combines a semantic and a lexical ranking with Reciprocal
// Rank Fusion:
//
//	score(d) = w_sem/(k + rank_sem(d)) + w_lex/(k + rank_lex(d))
//
// A chunk absent from one list contributes zero from that term: fusion
// rewards presence, it does not penalize absence.
type Fusion struct {
	K int
}

// NewFusion creates a fusion with smoothing constant k; k <= 0 falls
// back to the default.
func NewFusion(k int) *Fusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fusion{K: k}
}

// Fuse merges the two rankings under the given weights. Ties in fused
// score break toward the better semantic rank, then the better lexical
// rank. Returned results carry dense ranks from 1 and Source fused.
func (f *Fusion) Fuse(semantic []corpus.Hit, lexicalHits []lexical.Hit, w Weights) []Result {
	if len(semantic) == 0 && len(lexicalHits) == 0 {
		return []Result{}
	}

	merged := make(map[string]*Result, len(semantic)+len(lexicalHits))

	for i, hit := range semantic {
		rank := i + 1
		merged[hit.ChunkID] = &Result{
			ChunkID:      hit.ChunkID,
			CandidateID:  hit.CandidateID,
			Score:        w.Semantic / float64(f.K+rank),
			Source:       SourceFused,
			SemanticRank: rank,
		}
	}

	for i, hit := range lexicalHits {
		rank := i + 1
		r, ok := merged[hit.ChunkID]
		if !ok {
			r = &Result{
				ChunkID:     hit.ChunkID,
				CandidateID: hit.CandidateID,
				Source:      SourceFused,
			}
			merged[hit.ChunkID] = r
		}
		r.LexicalRank = rank
		r.Score += w.Lexical / float64(f.K+rank)
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		if ra, rb := rankOrInf(results[a].SemanticRank), rankOrInf(results[b].SemanticRank); ra != rb {
			return ra < rb
		}
		return rankOrInf(results[a].LexicalRank) < rankOrInf(results[b].LexicalRank)
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// rankOrInf treats an absent rank (0) as worse than any real rank.
func rankOrInf(rank int) int {
	if rank == 0 {
		return math.MaxInt
	}
	return rank
}
