package cmd

import (
	"errors"
	"io/fs"

	cerrors "github.com/candidex/candidex/internal/errors"
	"github.com/candidex/candidex/internal/search"
)

// codeError maps an error from a command into the coded form shown at
// the CLI boundary. Errors already coded deeper in the stack pass
// through; recognized sentinels get a code and a suggestion; anything
// else is reported as internal.
func codeError(err error) *cerrors.Error {
	var coded *cerrors.Error
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, search.ErrEmbeddingUnavailable):
		return cerrors.Wrap(cerrors.ErrCodeEmbeddingUnavailable, err).
			WithSuggestion("check CANDIDEX_VOYAGE_API_KEY and network access to the embedding host")
	case errors.Is(err, search.ErrLexicalUnavailable):
		return cerrors.Wrap(cerrors.ErrCodeLexicalUnavailable, err).
			WithSuggestion("rebuild the corpus to recreate the keyword index")
	case errors.Is(err, search.ErrRerankerUnavailable):
		return cerrors.Wrap(cerrors.ErrCodeRerankerUnavailable, err).
			WithSuggestion("set rerank.api_key in the config or drop --rerank")
	case errors.Is(err, search.ErrCorpusNotBuilt):
		return cerrors.Wrap(cerrors.ErrCodeCorpusNotBuilt, err).
			WithSuggestion("run `candidex build <records.json> --name <name>` first")
	case errors.Is(err, search.ErrInvalidCriteria):
		return cerrors.Wrap(cerrors.ErrCodeInvalidCriteria, err).
			WithSuggestion("give at least one criterion a non-empty query and a positive weight")
	case errors.Is(err, search.ErrCancelled):
		return cerrors.Wrap(cerrors.ErrCodeQueryCancelled, err)
	case errors.Is(err, fs.ErrNotExist):
		return cerrors.Wrap(cerrors.ErrCodeDatasetNotFound, err).
			WithSuggestion("check the file path")
	default:
		return cerrors.Wrap(cerrors.ErrCodeInternal, err)
	}
}
