package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/candidex/candidex/internal/chunk"
	"github.com/candidex/candidex/internal/config"
	"github.com/candidex/candidex/internal/corpus"
)

// TypePolicy resolves which chunk types a weighted criterion scores
// against.
type TypePolicy func(criterionName string) []chunk.Type

// candidateScore accumulates a candidate's best match per criterion.
type candidateScore struct {
	candidateID string
	total       float64

	// bestChunk is the chunk contributing the single largest weighted
	// similarity, reported as the representative match.
	bestChunk        string
	bestContribution float64
}

// criterionScores is the output of one criterion's scan: per-candidate
// max similarity plus the chunk that achieved it.
type criterionScores struct {
	name   string
	weight float64
	best   map[string]corpus.Hit
}

// weightedSearch scores every candidate against the active criteria.
// Each criterion runs as its own errgroup task; aggregation is keyed by
// criterion name, so completion order cannot affect the outcome.
func weightedSearch(ctx context.Context, c *corpus.Corpus, criteria []Criterion, threshold float64, k int, embedQuery func(context.Context, string) ([]float32, error), policy TypePolicy) ([]Result, error) {
	if policy == nil {
		policy = config.DefaultCriteriaPolicy().TypesFor
	}

	active := make([]Criterion, 0, len(criteria))
	weightSum := 0.0
	for _, crit := range criteria {
		if crit.Active() {
			active = append(active, crit)
			weightSum += crit.Weight
		}
	}
	if len(active) == 0 {
		return nil, ErrInvalidCriteria
	}

	scores := make([]criterionScores, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, crit := range active {
		g.Go(func() error {
			qvec, err := embedQuery(gctx, crit.Query)
			if err != nil {
				return err
			}
			best, err := scanCriterion(c, qvec, policy(crit.Name))
			if err != nil {
				return err
			}
			scores[i] = criterionScores{name: crit.Name, weight: crit.Weight, best: best}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make(map[string]*candidateScore)
	for _, cs := range scores {
		norm := cs.weight / weightSum
		for candidateID, hit := range cs.best {
			agg, ok := totals[candidateID]
			if !ok {
				agg = &candidateScore{candidateID: candidateID}
				totals[candidateID] = agg
			}
			contribution := norm * hit.Score
			agg.total += contribution
			if contribution > agg.bestContribution || agg.bestChunk == "" {
				agg.bestContribution = contribution
				agg.bestChunk = hit.ChunkID
			}
		}
	}

	ranked := make([]Result, 0, len(totals))
	for _, agg := range totals {
		if agg.total < threshold {
			continue
		}
		ranked = append(ranked, Result{
			ChunkID:     agg.bestChunk,
			CandidateID: agg.candidateID,
			Score:       agg.total,
			Source:      SourceWeighted,
		})
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].CandidateID < ranked[b].CandidateID
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// scanCriterion finds each candidate's best-scoring chunk among the
// allowed types. Ties keep the earlier chunk.
func scanCriterion(c *corpus.Corpus, query []float32, types []chunk.Type) (map[string]corpus.Hit, error) {
	if c.Len() > 0 && len(query) != c.Dimensions() {
		return nil, fmt.Errorf("query has %d dimensions, corpus has %d", len(query), c.Dimensions())
	}

	allowed := make(map[chunk.Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}

	score := c.Scorer(query)
	best := make(map[string]corpus.Hit)
	for i := 0; i < c.Len(); i++ {
		ch := c.Chunk(i)
		if !allowed[ch.Type] {
			continue
		}
		s := score(i)
		if prev, ok := best[ch.CandidateID]; !ok || s > prev.Score {
			best[ch.CandidateID] = corpus.Hit{
				Index:       i,
				ChunkID:     ch.ID,
				CandidateID: ch.CandidateID,
				Score:       s,
			}
		}
	}
	return best, nil
}
