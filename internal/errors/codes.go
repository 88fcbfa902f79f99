package errors

// Category groups error codes by subsystem.
type Category string

const (
	CategoryConfig   Category = "Config"
	CategoryDataset  Category = "Dataset"
	CategoryProvider Category = "Provider"
	CategoryCorpus   Category = "Corpus"
	CategoryQuery    Category = "Query"
	CategoryInternal Category = "Internal"
)

// Severity indicates how a caller should react to an error.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Error codes. The numeric band encodes the category.
const (
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	ErrCodeDatasetNotFound = "ERR_201_DATASET_NOT_FOUND"
	ErrCodeDatasetInvalid  = "ERR_202_DATASET_INVALID"

	ErrCodeEmbeddingUnavailable = "ERR_301_EMBEDDING_UNAVAILABLE"
	ErrCodeLexicalUnavailable   = "ERR_302_LEXICAL_UNAVAILABLE"
	ErrCodeRerankerUnavailable  = "ERR_303_RERANKER_UNAVAILABLE"

	ErrCodeCorpusNotBuilt = "ERR_401_CORPUS_NOT_BUILT"
	ErrCodeCorpusCorrupt  = "ERR_402_CORPUS_CORRUPT"

	ErrCodeInvalidCriteria = "ERR_501_INVALID_CRITERIA"
	ErrCodeQueryCancelled  = "ERR_502_QUERY_CANCELLED"

	ErrCodeInternal = "ERR_901_INTERNAL"
)

var codeCategories = map[string]Category{
	ErrCodeConfigInvalid:        CategoryConfig,
	ErrCodeDatasetNotFound:      CategoryDataset,
	ErrCodeDatasetInvalid:       CategoryDataset,
	ErrCodeEmbeddingUnavailable: CategoryProvider,
	ErrCodeLexicalUnavailable:   CategoryProvider,
	ErrCodeRerankerUnavailable:  CategoryProvider,
	ErrCodeCorpusNotBuilt:       CategoryCorpus,
	ErrCodeCorpusCorrupt:        CategoryCorpus,
	ErrCodeInvalidCriteria:      CategoryQuery,
	ErrCodeQueryCancelled:       CategoryQuery,
	ErrCodeInternal:             CategoryInternal,
}

// retryableCodes are provider outages that may clear on a later attempt.
var retryableCodes = map[string]bool{
	ErrCodeEmbeddingUnavailable: true,
	ErrCodeLexicalUnavailable:   true,
	ErrCodeRerankerUnavailable:  true,
}

func categoryFromCode(code string) Category {
	if c, ok := codeCategories[code]; ok {
		return c
	}
	return CategoryInternal
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeLexicalUnavailable, ErrCodeRerankerUnavailable:
		// Both have documented fallbacks; surfaced only for logging.
		return SeverityWarning
	case ErrCodeCorpusCorrupt:
		return SeverityFatal
	default:
		return SeverityError
	}
}

func isRetryableCode(code string) bool {
	return retryableCodes[code]
}
