// Package exampleindex holds the read-only nearest-neighbor indexes over curated examples.
package exampleindex

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

// Index is a read-only nearest-neighbor index over example embeddings.
// Row i of the index always belongs to record i.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]example.Hit, error)
	Len() int
	Dimension() int
}

var _ Index = (*Flat)(nil)

// Flat is an exact inner-product index. Safe for concurrent reads.
type Flat struct {
	dim     int
	vectors [][]float32
	records []example.Record
}

// NewFlat creates a flat index. vectors[i] must be the embedding of records[i].
func NewFlat(records []example.Record, vectors [][]float32) (*Flat, error) {
	dim, err := checkRows(records, vectors)
	if err != nil {
		return nil, err
	}
	return &Flat{dim: dim, vectors: vectors, records: records}, nil
}

// Search returns up to k hits by descending inner product; equal scores keep index order.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]example.Hit, error) {
	if len(f.records) == 0 || k <= 0 {
		return []example.Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", domain.ErrDimensionMismatch, f.dim, len(query))
	}

	hits := make([]example.Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = example.Hit{Record: f.records[i], Score: dot(query, v), Position: i}
	}
	sortHits(hits)

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (f *Flat) Len() int { return len(f.records) }

// Dimension returns the vector dimension (0 for an empty index).
func (f *Flat) Dimension() int { return f.dim }

// Vectors returns the stored rows for persisting.
func (f *Flat) Vectors() [][]float32 { return f.vectors }

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// sortHits orders by score descending, then by position ascending.
func sortHits(hits []example.Hit) {
	slices.SortStableFunc(hits, func(a, b example.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Position - b.Position
		}
	})
}

func checkRows(records []example.Record, vectors [][]float32) (int, error) {
	if len(records) != len(vectors) {
		return 0, fmt.Errorf("%w: %d records but %d vectors", domain.ErrIndexCorrupt, len(records), len(vectors))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty vector at row 0", domain.ErrIndexCorrupt)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: row %d has dimension %d, expected %d", domain.ErrIndexCorrupt, i, len(v), dim)
		}
	}
	return dim, nil
}
