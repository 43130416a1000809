package ingres

import "github.com/kailas-cloud/ingres/internal/domain"

// Sentinel errors re-exported from the domain layer.
// New and Warmup wrap them; use errors.Is() to check.
var (
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrCompletionProviderError = domain.ErrCompletionProviderError
	ErrEmptyCompletion         = domain.ErrEmptyCompletion
	ErrMalformedOutput         = domain.ErrMalformedOutput
	ErrDimensionMismatch       = domain.ErrDimensionMismatch
	ErrIndexCorrupt            = domain.ErrIndexCorrupt
)
