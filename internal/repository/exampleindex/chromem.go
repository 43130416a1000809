package exampleindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

const positionKey = "position"

var _ Index = (*Chromem)(nil)

// Chromem serves the index from an in-memory chromem-go collection.
type Chromem struct {
	coll    *chromem.Collection
	records []example.Record
	dim     int
}

// NewChromem loads records and their precomputed vectors into a chromem collection.
// embedder backs the collection's embedding function; it is only used if a
// document arrives without a vector.
func NewChromem(
	ctx context.Context,
	name string,
	records []example.Record,
	vectors [][]float32,
	embedder domain.Embedder,
	concurrency int,
) (*Chromem, error) {
	dim, err := checkRows(records, vectors)
	if err != nil {
		return nil, err
	}

	coll, err := chromem.NewDB().CreateCollection(name, nil, EmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create chromem collection %s: %w", name, err)
	}

	if len(records) > 0 {
		docs := make([]chromem.Document, len(records))
		for i, r := range records {
			docs[i] = chromem.Document{
				ID:        strconv.Itoa(i),
				Metadata:  map[string]string{positionKey: strconv.Itoa(i)},
				Embedding: vectors[i],
				Content:   r.Query(),
			}
		}
		if concurrency <= 0 {
			concurrency = 1
		}
		if err := coll.AddDocuments(ctx, docs, concurrency); err != nil {
			return nil, fmt.Errorf("add chromem documents: %w", err)
		}
	}

	return &Chromem{coll: coll, records: records, dim: dim}, nil
}

// Search ranks every document and reapplies the index tie order before
// cutting to k; chromem picks arbitrarily among scores tied at its cutoff.
func (c *Chromem) Search(ctx context.Context, query []float32, k int) ([]example.Hit, error) {
	if len(c.records) == 0 || k <= 0 {
		return []example.Hit{}, nil
	}
	if len(query) != c.dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", domain.ErrDimensionMismatch, c.dim, len(query))
	}
	res, err := c.coll.QueryEmbedding(ctx, query, c.coll.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem: %w", err)
	}

	hits := make([]example.Hit, 0, len(res))
	for _, r := range res {
		pos, err := strconv.Atoi(r.Metadata[positionKey])
		if err != nil || pos < 0 || pos >= len(c.records) {
			return nil, fmt.Errorf("%w: bad position %q for document %s", domain.ErrIndexCorrupt, r.Metadata[positionKey], r.ID)
		}
		hits = append(hits, example.Hit{Record: c.records[pos], Score: r.Similarity, Position: pos})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (c *Chromem) Len() int { return len(c.records) }

// Dimension returns the vector dimension (0 for an empty index).
func (c *Chromem) Dimension() int { return c.dim }

// EmbeddingFunc adapts a domain embedder to chromem's embedding function.
func EmbeddingFunc(e domain.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if e == nil {
			return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingProviderError)
		}
		res, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return res.Embedding, nil
	}
}
