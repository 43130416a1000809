package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies upstream provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// UniformVector returns the unit vector with all dims components equal.
func UniformVector(dims int) []float32 {
	v := make([]float32, dims)
	if dims == 0 {
		return v
	}
	c := float32(1 / math.Sqrt(float64(dims)))
	for i := range v {
		v[i] = c
	}
	return v
}

// NormalizedEmbedder guarantees unit-length output so inner product equals cosine similarity.
// Blank input never reaches the provider: it maps to UniformVector(dims).
type NormalizedEmbedder struct {
	inner Embedder
	dims  int
}

// NewNormalizedEmbedder wraps inner. dims is the expected vector dimension (0 = unchecked).
func NewNormalizedEmbedder(inner Embedder, dims int) *NormalizedEmbedder {
	return &NormalizedEmbedder{inner: inner, dims: dims}
}

// Embed normalizes the inner embedding and checks its dimension.
func (e *NormalizedEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" && e.dims > 0 {
		return EmbeddingResult{Embedding: UniformVector(e.dims)}, nil
	}

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("normalized embed: %w", err)
	}
	if e.dims > 0 && len(result.Embedding) != e.dims {
		return EmbeddingResult{}, fmt.Errorf("%w: expected %d, got %d",
			ErrDimensionMismatch, e.dims, len(result.Embedding))
	}

	result.Embedding = Normalize(result.Embedding)
	return result, nil
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
// Models such as e5 or nomic-embed expect a "query: " style prefix.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
