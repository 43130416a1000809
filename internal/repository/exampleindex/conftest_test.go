package exampleindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

func testRecords(queries ...string) []example.Record {
	out := make([]example.Record, len(queries))
	for i, q := range queries {
		raw, _ := json.Marshal(map[string]string{"query": q})
		out[i] = example.New(q, raw)
	}
	return out
}

// tableEmbedder returns fixed vectors per text.
type tableEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
}

func (e *tableEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls.Add(1)
	v, ok := e.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: no vector for %q", domain.ErrEmbeddingProviderError, text)
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}
