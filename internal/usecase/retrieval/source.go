// Package retrieval selects the few-shot examples placed in a prompt.
package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ingres/internal/domain/example"
)

// Heading names how the examples were chosen; it titles the prompt section.
const (
	RetrievedHeading = "**RAG-Retrieved Few-shot Examples:**"
	StaticHeading    = "**Few-shot Examples:**"
)

// DefaultTopK is the number of examples retrieved per query.
const DefaultTopK = 5

// Source yields the examples for a query, most relevant first.
type Source interface {
	Examples(ctx context.Context, query string) ([]example.Record, error)
	Heading() string
}

var (
	_ Source = (*RetrievalSource)(nil)
	_ Source = (*StaticSource)(nil)
)

// RetrievalSource embeds the query and returns its nearest examples.
type RetrievalSource struct {
	embed Embedder
	index Index
	k     int
}

// NewRetrievalSource creates a retrieval-backed source. k <= 0 uses DefaultTopK.
func NewRetrievalSource(embed Embedder, index Index, k int) *RetrievalSource {
	if k <= 0 {
		k = DefaultTopK
	}
	return &RetrievalSource{embed: embed, index: index, k: k}
}

// Examples returns up to k records ordered by similarity. An empty result is valid.
func (s *RetrievalSource) Examples(ctx context.Context, query string) ([]example.Record, error) {
	hits, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return example.Records(hits), nil
}

// Search returns the scored hits for query.
func (s *RetrievalSource) Search(ctx context.Context, query string) ([]example.Hit, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Search(ctx, emb.Embedding, s.k)
	if err != nil {
		return nil, fmt.Errorf("search examples: %w", err)
	}
	return hits, nil
}

// Heading implements Source.
func (s *RetrievalSource) Heading() string { return RetrievedHeading }

// StaticSource always returns the same examples, ignoring the query.
type StaticSource struct {
	records []example.Record
}

// NewStaticSource creates a fixed example source.
func NewStaticSource(records []example.Record) *StaticSource {
	if records == nil {
		records = []example.Record{}
	}
	return &StaticSource{records: records}
}

// Examples returns the fixed list.
func (s *StaticSource) Examples(_ context.Context, _ string) ([]example.Record, error) {
	return s.records, nil
}

// Heading implements Source.
func (s *StaticSource) Heading() string { return StaticHeading }
