package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/candidex/candidex/internal/chunk"
	"github.com/candidex/candidex/internal/corpus"
	"github.com/candidex/candidex/internal/embed"
	"github.com/candidex/candidex/internal/lexical"
	"github.com/candidex/candidex/internal/record"
	"github.com/candidex/candidex/internal/telemetry"
)

// Engine is the retrieval facade: it owns the query embedder, the
// corpus lifecycle, and the optional lexical and reranker backends.
type Engine struct {
	embedder embed.Embedder
	builder  *corpus.Builder
	manager  *corpus.Manager
	lexical  *lexical.Index
	reranker Reranker
	metrics  *telemetry.QueryMetrics
	policy   TypePolicy
	fusion   *Fusion
	config   EngineConfig
	logger   *slog.Logger
}

// EngineOption configures optional engine dependencies.
type EngineOption func(*Engine)

// WithLexical attaches a keyword index. Without one, hybrid queries
// run degraded and lexical queries fail.
func WithLexical(idx *lexical.Index) EngineOption {
	return func(e *Engine) { e.lexical = idx }
}

// WithReranker attaches a cross-encoder reranker.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithMetrics attaches query telemetry.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTypePolicy sets the criterion-to-chunk-type mapping for weighted
// queries.
func WithTypePolicy(p TypePolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine. The embedder, builder, and
// manager are required; everything else is optional.
func NewEngine(embedder embed.Embedder, builder *corpus.Builder, manager *corpus.Manager, cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: builder", ErrNilDependency)
	}
	if manager == nil {
		return nil, fmt.Errorf("%w: manager", ErrNilDependency)
	}

	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = DefaultRRFConstant
	}
	if cfg.RecallFactor <= 0 {
		cfg.RecallFactor = 3
	}
	if cfg.RecallMultiplier <= 0 {
		cfg.RecallMultiplier = 10
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	e := &Engine{
		embedder: embedder,
		builder:  builder,
		manager:  manager,
		fusion:   NewFusion(cfg.RRFConstant),
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Manager exposes the corpus registry for callers that resolve
// datasets by name.
func (e *Engine) Manager() *corpus.Manager { return e.manager }

// Close releases the engine's backends.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.embedder.Close(); err != nil {
		firstErr = err
	}
	if e.lexical != nil {
		if err := e.lexical.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.reranker != nil {
		if err := e.reranker.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildCorpus chunks and embeds records, publishes the result under
// name, and refreshes the lexical index. Readers querying the previous
// corpus are unaffected until the swap.
func (e *Engine) BuildCorpus(ctx context.Context, name string, records []record.Candidate) (*corpus.Corpus, error) {
	c, err := e.builder.Build(ctx, records)
	if err != nil {
		return nil, e.mapCancel(ctx, err)
	}

	if e.lexical != nil {
		if err := e.refreshLexical(ctx, c); err != nil {
			// Hybrid queries degrade to semantic-only until the next
			// successful build.
			e.logger.Warn("lexical index refresh failed",
				slog.String("corpus", name),
				slog.String("error", err.Error()))
		}
	}

	e.manager.Publish(name, c)
	return c, nil
}

func (e *Engine) refreshLexical(ctx context.Context, c *corpus.Corpus) error {
	if err := e.lexical.Reset(ctx); err != nil {
		return err
	}
	return e.lexical.IndexChunks(ctx, c.Chunks())
}

// Semantic runs a pure embedding-similarity query.
func (e *Engine) Semantic(ctx context.Context, c *corpus.Corpus, query string, k int) (*ResultSet, error) {
	if c == nil {
		return nil, ErrCorpusNotBuilt
	}
	k = e.clampLimit(k)
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	start := time.Now()

	hits, err := e.semanticHits(ctx, c, query, k, nil)
	if err != nil {
		return nil, e.mapCancel(ctx, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ChunkID:      hit.ChunkID,
			CandidateID:  hit.CandidateID,
			Score:        hit.Score,
			Rank:         i + 1,
			Source:       SourceSemantic,
			SemanticRank: i + 1,
		}
	}
	e.fillContent(c, results)

	e.record(query, telemetry.KindSemantic, len(results), false, start)
	return &ResultSet{Results: results}, nil
}

// Lexical runs a pure keyword query.
func (e *Engine) Lexical(ctx context.Context, c *corpus.Corpus, query string, k int) (*ResultSet, error) {
	if c == nil {
		return nil, ErrCorpusNotBuilt
	}
	if e.lexical == nil {
		return nil, ErrLexicalUnavailable
	}
	k = e.clampLimit(k)
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	start := time.Now()

	hits, err := e.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, e.mapCancel(ctx, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ChunkID:     hit.ChunkID,
			CandidateID: hit.CandidateID,
			Score:       hit.Score,
			Rank:        i + 1,
			Source:      SourceLexical,
			LexicalRank: i + 1,
		}
	}
	e.fillContent(c, results)

	e.record(query, telemetry.KindLexical, len(results), false, start)
	return &ResultSet{Results: results}, nil
}

// Hybrid fuses semantic and keyword rankings with RRF. A lexical
// outage degrades to semantic-only and sets Degraded; a semantic
// failure has no fallback and surfaces as an error.
func (e *Engine) Hybrid(ctx context.Context, c *corpus.Corpus, query string, k int, w Weights) (*ResultSet, error) {
	if c == nil {
		return nil, ErrCorpusNotBuilt
	}
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if !w.Valid() {
		return nil, fmt.Errorf("invalid fusion weights: semantic=%v lexical=%v", w.Semantic, w.Lexical)
	}
	k = e.clampLimit(k)
	recall := k * e.config.RecallFactor
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	start := time.Now()

	var semHits []corpus.Hit
	var lexHits []lexical.Hit
	degraded := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.semanticHits(gctx, c, query, recall, nil)
		if err != nil {
			return err
		}
		semHits = hits
		return nil
	})
	g.Go(func() error {
		if e.lexical == nil {
			degraded = true
			return nil
		}
		hits, err := e.lexical.Search(gctx, query, recall)
		if err != nil {
			// Keyword search is best-effort in hybrid mode. Cancellation
			// is not an outage though; let the semantic side report it.
			if gctx.Err() != nil {
				return nil
			}
			e.logger.Warn("lexical search degraded",
				slog.String("error", err.Error()))
			degraded = true
			return nil
		}
		lexHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.mapCancel(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.mapCancel(ctx, err)
	}

	results := e.fusion.Fuse(semHits, lexHits, w)
	if len(results) > k {
		results = results[:k]
	}
	e.fillContent(c, results)

	e.record(query, telemetry.KindHybrid, len(results), degraded, start)
	return &ResultSet{Results: results, Degraded: degraded}, nil
}

// Weighted scores candidates against multiple criteria and returns
// candidates, not chunks. Results never pass through the reranker.
func (e *Engine) Weighted(ctx context.Context, c *corpus.Corpus, criteria []Criterion, threshold float64, k int) (*ResultSet, error) {
	if c == nil {
		return nil, ErrCorpusNotBuilt
	}
	k = e.clampLimit(k)
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	start := time.Now()

	results, err := weightedSearch(ctx, c, criteria, threshold, k, e.embedder.Embed, e.policy)
	if err != nil {
		return nil, e.mapCancel(ctx, err)
	}
	e.fillContent(c, results)

	e.record(criteriaSummary(criteria), telemetry.KindWeighted, len(results), false, start)
	return &ResultSet{Results: results}, nil
}

// Rerank refines the top of an upstream ranking with the cross-encoder.
// At most k×recallMultiplier upstream results are scored. When the
// reranker is missing, unavailable, or fails, the upstream top-k comes
// back unchanged with Degraded set.
func (e *Engine) Rerank(ctx context.Context, query string, upstream *ResultSet, k, recallMultiplier int) (*ResultSet, error) {
	if upstream == nil {
		return nil, fmt.Errorf("%w: upstream results", ErrNilDependency)
	}
	k = e.clampLimit(k)
	if recallMultiplier <= 0 {
		recallMultiplier = e.config.RecallMultiplier
	}

	passthrough := func(degraded bool) *ResultSet {
		results := upstream.Results
		if len(results) > k {
			results = results[:k]
		}
		return &ResultSet{Results: results, Degraded: degraded}
	}

	if e.reranker == nil {
		return passthrough(true), nil
	}
	if len(upstream.Results) < 2 {
		// Nothing to reorder; this is not a degradation.
		return passthrough(upstream.Degraded), nil
	}
	if !e.reranker.Available(ctx) {
		e.logger.Warn("reranker unavailable, keeping upstream order")
		return passthrough(true), nil
	}

	pool := upstream.Results
	if maxPool := k * recallMultiplier; len(pool) > maxPool {
		pool = pool[:maxPool]
	}
	documents := make([]string, len(pool))
	for i, r := range pool {
		documents[i] = r.Content
	}

	reranked, err := e.reranker.Rerank(ctx, query, documents, 0)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.mapCancel(ctx, ctxErr)
		}
		e.logger.Warn("reranking failed, keeping upstream order",
			slog.String("error", err.Error()))
		return passthrough(true), nil
	}

	results := make([]Result, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(pool) {
			e.logger.Warn("reranker returned invalid index, keeping upstream order",
				slog.Int("index", rr.Index))
			return passthrough(true), nil
		}
		r := pool[rr.Index]
		r.Score = rr.Score
		r.Source = SourceReranked
		results = append(results, r)
	}
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return &ResultSet{Results: results, Degraded: upstream.Degraded}, nil
}

// Candidate returns every chunk of one candidate, in chunking order.
// An unknown candidate yields an empty slice.
func (e *Engine) Candidate(_ context.Context, c *corpus.Corpus, candidateID string) ([]chunk.Chunk, error) {
	if c == nil {
		return nil, ErrCorpusNotBuilt
	}
	chunks := c.CandidateChunks(candidateID)
	if chunks == nil {
		return []chunk.Chunk{}, nil
	}
	return chunks, nil
}

func (e *Engine) semanticHits(ctx context.Context, c *corpus.Corpus, query string, k int, filter []string) ([]corpus.Hit, error) {
	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.Search(qvec, k, filter)
}

func (e *Engine) fillContent(c *corpus.Corpus, results []Result) {
	for i := range results {
		if ch, ok := c.ChunkByID(results[i].ChunkID); ok {
			results[i].Content = ch.Content
		}
	}
}

func (e *Engine) clampLimit(k int) int {
	if k <= 0 {
		return e.config.DefaultLimit
	}
	if k > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return k
}

// mapCancel converts a cancellation into ErrCancelled; other errors
// pass through.
func (e *Engine) mapCancel(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr == context.Canceled {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

func (e *Engine) record(query string, kind telemetry.QueryKind, count int, degraded bool, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Kind:        kind,
		ResultCount: count,
		Degraded:    degraded,
		Latency:     time.Since(start),
		Timestamp:   start,
	})
}

func criteriaSummary(criteria []Criterion) string {
	summary := ""
	for _, crit := range criteria {
		if !crit.Active() {
			continue
		}
		if summary != "" {
			summary += " | "
		}
		summary += crit.Name + ": " + crit.Query
	}
	return summary
}
