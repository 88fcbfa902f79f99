package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/candidex/candidex/internal/chunk"
	"github.com/candidex/candidex/internal/embed"
	cerrors "github.com/candidex/candidex/internal/errors"
	"github.com/candidex/candidex/internal/record"
)

// DefaultWorkers is the default size of the embedding worker pool.
const DefaultWorkers = 4

// BuilderConfig configures corpus construction.
type BuilderConfig struct {
	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int

	// Workers bounds concurrent embedding batches.
	Workers int

	// Retry governs re-embedding of a failed batch. Only the failed
	// batch is retried; completed batches keep their vectors.
	Retry cerrors.RetryConfig
}

// Builder turns candidate records into a searchable corpus.
type Builder struct {
	embedder embed.Embedder
	config   BuilderConfig
	logger   *slog.Logger
}

// NewBuilder creates a corpus builder.
func NewBuilder(embedder embed.Embedder, cfg BuilderConfig, logger *slog.Logger) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embed.DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = cerrors.DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{embedder: embedder, config: cfg, logger: logger}
}

// Build chunks the records, embeds every chunk, and returns the
// finished corpus. Batches run on a bounded worker pool; any batch that
// still fails after retries fails the whole build, so a corpus is never
// published with holes.
func (b *Builder) Build(ctx context.Context, records []record.Candidate) (*Corpus, error) {
	start := time.Now()
	chunks := chunk.SplitAll(records)
	if len(chunks) == 0 {
		return New(nil, nil)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	c, err := New(chunks, vectors)
	if err != nil {
		return nil, err
	}

	b.logger.Info("corpus built",
		slog.Int("candidates", len(records)),
		slog.Int("chunks", c.Len()),
		slog.Int("dims", c.Dimensions()),
		slog.Duration("elapsed", time.Since(start)))
	return c, nil
}

func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	pool, err := ants.NewPool(b.config.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, len(texts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for batchStart := 0; batchStart < len(texts); batchStart += b.config.BatchSize {
		start := batchStart
		end := start + b.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			batchErr := cerrors.Retry(ctx, b.config.Retry, func() error {
				vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
				if err != nil {
					b.logger.Warn("embedding batch failed",
						slog.Int("start", start),
						slog.Int("size", end-start),
						slog.String("error", err.Error()))
					return err
				}
				copy(vectors[start:end], vecs)
				return nil
			})
			if batchErr != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed batch at %d: %w", start, batchErr)
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("submit batch: %w", submitErr)
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
