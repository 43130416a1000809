package retrieval

import (
	"context"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index searches precomputed example embeddings.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]example.Hit, error)
}
