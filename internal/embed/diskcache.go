package embed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// DiskCache is the persistent, process-wide embedding cache. Entries
// are keyed by (sha256(text), model) and never evicted: the corpus is
// bounded, so unbounded growth stays small. Concurrent misses for the
// same key may both compute and store; the value is a pure function of
// the key, so last write wins harmlessly.
type DiskCache struct {
	db *sql.DB
}

// NewDiskCache opens (or creates) an embedding cache at path.
// Empty path creates an in-memory cache for testing.
func NewDiskCache(path string) (*DiskCache, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	// Single writer prevents lock contention under concurrent misses.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		text_hash  TEXT NOT NULL,
		model      TEXT NOT NULL,
		dims       INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (text_hash, model)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	return &DiskCache{db: db}, nil
}

func textHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached vector for (text, model), if present.
// A stored vector under a different model is a miss, never a hit.
func (c *DiskCache) Get(ctx context.Context, text, model string) ([]float32, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE text_hash = ? AND model = ?`,
		textHash(text), model,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return DecodeVector(blob), true, nil
}

// Put stores a vector for (text, model), replacing any previous entry.
func (c *DiskCache) Put(ctx context.Context, text, model string, vec []float32) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (text_hash, model, dims, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		textHash(text), model, len(vec), EncodeVector(vec), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached vector or invokes compute and stores
// the result. Compute failures propagate untouched: the retry policy
// belongs to the caller, not the cache.
func (c *DiskCache) GetOrCompute(ctx context.Context, text, model string, compute func(context.Context) ([]float32, error)) ([]float32, error) {
	if vec, ok, err := c.Get(ctx, text, model); err != nil {
		return nil, err
	} else if ok {
		return vec, nil
	}

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, text, model, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// Len returns the number of cached entries, for stats reporting.
func (c *DiskCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

// DiskCached wraps an Embedder with the persistent cache. Batch calls
// check the cache per text and send only the misses to the provider,
// so a rebuild over an unchanged dataset makes no remote calls.
type DiskCached struct {
	inner Embedder
	cache *DiskCache
}

var _ Embedder = (*DiskCached)(nil)

// NewDiskCached creates a disk-cached embedder wrapping inner.
func NewDiskCached(inner Embedder, cache *DiskCache) *DiskCached {
	return &DiskCached{inner: inner, cache: cache}
}

// Embed returns the cached embedding or computes and stores it.
func (d *DiskCached) Embed(ctx context.Context, text string) ([]float32, error) {
	return d.cache.GetOrCompute(ctx, text, d.inner.ModelName(), func(ctx context.Context) ([]float32, error) {
		return d.inner.Embed(ctx, text)
	})
}

// EmbedBatch embeds texts, serving hits from the cache and batching
// misses to the provider.
func (d *DiskCached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model := d.inner.ModelName()
	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		vec, ok, err := d.cache.Get(ctx, text, model)
		if err != nil {
			return nil, err
		}
		if ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := d.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		results[i] = vecs[j]
		if err := d.cache.Put(ctx, texts[i], model, vecs[j]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Dimensions returns the embedding dimension of the inner embedder.
func (d *DiskCached) Dimensions() int { return d.inner.Dimensions() }

// ModelName returns the model identifier of the inner embedder.
func (d *DiskCached) ModelName() string { return d.inner.ModelName() }

// Available checks the inner embedder.
func (d *DiskCached) Available(ctx context.Context) bool { return d.inner.Available(ctx) }

// Close closes the inner embedder. The cache is owned by the caller.
func (d *DiskCached) Close() error { return d.inner.Close() }
