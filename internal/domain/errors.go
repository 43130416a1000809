package domain

import "errors"

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure (transport or API).
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrEmptyCompletion signals a completion response without choices.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrMalformedOutput signals model output that is not a JSON object.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrDimensionMismatch signals a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupt signals unreadable or inconsistent persisted example artifacts.
	ErrIndexCorrupt = errors.New("example index corrupt")
	// ErrInvalidRequest signals a request that fails shape validation at the boundary.
	ErrInvalidRequest = errors.New("invalid request")
)
