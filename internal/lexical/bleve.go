// Package lexical provides keyword search over chunk content using a
// bleve BM25 index. It complements the semantic side of hybrid search:
// exact terms like product names or certifications that embeddings blur
// still rank here.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/candidex/candidex/internal/chunk"
)

// ErrUnavailable signals that the lexical backend cannot serve the
// request. Hybrid search treats it as a degradation, not a failure.
var ErrUnavailable = errors.New("lexical index unavailable")

// Field boosts mirror the weight the original ranking gives each field:
// chunk content dominates, company and title get a moderate lift.
const (
	contentBoost = 2.0
	companyBoost = 1.5
	titleBoost   = 1.5
)

// Hit is one keyword match.
type Hit struct {
	ChunkID     string
	CandidateID string
	Score       float64
}

// indexDocument is the shape handed to bleve.
type indexDocument struct {
	Content     string `json:"content"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	CandidateID string `json:"candidate_id"`
}

// Index is a bleve-backed keyword index over chunks.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

func indexMapping() (*mapping.IndexMappingImpl, error) {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Index = false
	keywordField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", textField)
	doc.AddFieldMappingsAt("company", textField)
	doc.AddFieldMappingsAt("title", textField)
	doc.AddFieldMappingsAt("candidate_id", keywordField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m, nil
}

// New creates a keyword index at path, or an in-memory index when path
// is empty. An existing on-disk index is reopened.
func New(path string) (*Index, error) {
	m, err := indexMapping()
	if err != nil {
		return nil, fmt.Errorf("%w: create mapping: %v", ErrUnavailable, err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("%w: create index directory: %v", ErrUnavailable, mkErr)
		}
		if _, statErr := os.Stat(path); statErr == nil {
			idx, err = bleve.Open(path)
		} else {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open index: %v", ErrUnavailable, err)
	}

	return &Index{index: idx, path: path}, nil
}

// IndexChunks adds chunks to the index in one batch.
func (x *Index) IndexChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("%w: index closed", ErrUnavailable)
	}

	batch := x.index.NewBatch()
	for _, ch := range chunks {
		doc := indexDocument{
			Content:     ch.Content,
			Company:     ch.Metadata.Company,
			Title:       ch.Metadata.Title,
			CandidateID: ch.CandidateID,
		}
		if err := batch.Index(ch.ID, doc); err != nil {
			return fmt.Errorf("%w: index chunk %s: %v", ErrUnavailable, ch.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("%w: execute batch: %v", ErrUnavailable, err)
	}
	return nil
}

// Reset drops every document, for a rebuild over the same index.
func (x *Index) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("%w: index closed", ErrUnavailable)
	}

	count, err := x.index.DocCount()
	if err != nil {
		return fmt.Errorf("%w: count documents: %v", ErrUnavailable, err)
	}
	if count == 0 {
		return nil
	}

	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	result, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: enumerate documents: %v", ErrUnavailable, err)
	}

	batch := x.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("%w: delete documents: %v", ErrUnavailable, err)
	}
	return nil
}

// Search returns up to limit keyword matches, best first. Queries hit
// content, company, and title with their respective boosts.
func (x *Index) Search(ctx context.Context, queryStr string, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("%w: index closed", ErrUnavailable)
	}
	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []Hit{}, nil
	}

	content := bleve.NewMatchQuery(queryStr)
	content.SetField("content")
	content.SetBoost(contentBoost)

	company := bleve.NewMatchQuery(queryStr)
	company.SetField("company")
	company.SetBoost(companyBoost)

	title := bleve.NewMatchQuery(queryStr)
	title.SetField("title")
	title.SetBoost(titleBoost)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(content, company, title))
	req.Size = limit
	req.Fields = []string{"candidate_id"}

	result, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		candidateID, _ := h.Fields["candidate_id"].(string)
		hits = append(hits, Hit{
			ChunkID:     h.ID,
			CandidateID: candidateID,
			Score:       h.Score,
		})
	}
	return hits, nil
}

// DocCount returns the number of indexed chunks.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0, fmt.Errorf("%w: index closed", ErrUnavailable)
	}
	return x.index.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}
