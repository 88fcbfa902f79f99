package search

import (
	"errors"

	"github.com/candidex/candidex/internal/corpus"
	"github.com/candidex/candidex/internal/embed"
	"github.com/candidex/candidex/internal/lexical"
)

// Sentinels for the failure modes callers branch on. The backend
// sentinels are shared with their packages so errors.Is works on a
// result from any layer.
var (
	ErrEmbeddingUnavailable = embed.ErrUnavailable
	ErrLexicalUnavailable   = lexical.ErrUnavailable
	ErrCorpusNotBuilt       = corpus.ErrNotBuilt
	ErrRerankerUnavailable  = errors.New("reranker unavailable")
	ErrInvalidCriteria      = errors.New("no active criteria")
	ErrCancelled            = errors.New("query cancelled")
	ErrNilDependency        = errors.New("nil dependency")
)
