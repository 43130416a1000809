package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

type mockEmbedder struct {
	vec  []float32
	err  error
	seen string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.seen = text
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

type mockIndex struct {
	hits  []example.Hit
	err   error
	gotK  int
	gotQV []float32
}

func (m *mockIndex) Search(_ context.Context, q []float32, k int) ([]example.Hit, error) {
	m.gotK, m.gotQV = k, q
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.hits) {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

func rec(q string) example.Record {
	return example.New(q, []byte(`{"query":"`+q+`"}`))
}

func TestRetrievalSource_Examples(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	idx := &mockIndex{hits: []example.Hit{
		{Record: rec("a"), Score: 0.9},
		{Record: rec("b"), Score: 0.8, Position: 1},
	}}
	src := NewRetrievalSource(emb, idx, 0)

	got, err := src.Examples(context.Background(), "Compare Punjab and Haryana")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Query() != "a" {
		t.Errorf("unexpected records %v", got)
	}
	if idx.gotK != DefaultTopK {
		t.Errorf("expected k=%d, got %d", DefaultTopK, idx.gotK)
	}
	if emb.seen != "Compare Punjab and Haryana" {
		t.Errorf("query not embedded verbatim: %q", emb.seen)
	}
	if src.Heading() != RetrievedHeading {
		t.Errorf("unexpected heading %q", src.Heading())
	}
}

func TestRetrievalSource_EmptyIndex(t *testing.T) {
	src := NewRetrievalSource(&mockEmbedder{vec: []float32{1}}, &mockIndex{hits: []example.Hit{}}, 5)

	got, err := src.Examples(context.Background(), "hello")
	if err != nil {
		t.Fatalf("empty index must not fail: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %v", got)
	}
}

func TestRetrievalSource_Errors(t *testing.T) {
	src := NewRetrievalSource(&mockEmbedder{err: domain.ErrEmbeddingProviderError}, &mockIndex{}, 5)
	if _, err := src.Examples(context.Background(), "x"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected embedding error, got %v", err)
	}

	src = NewRetrievalSource(&mockEmbedder{vec: []float32{1}}, &mockIndex{err: domain.ErrDimensionMismatch}, 5)
	if _, err := src.Examples(context.Background(), "x"); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected dimension error, got %v", err)
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource([]example.Record{rec("fixed")})

	a, _ := src.Examples(context.Background(), "one")
	b, _ := src.Examples(context.Background(), "two")
	if len(a) != 1 || len(b) != 1 || a[0].Query() != b[0].Query() {
		t.Errorf("static source must ignore the query: %v %v", a, b)
	}
	if src.Heading() != StaticHeading {
		t.Errorf("unexpected heading %q", src.Heading())
	}

	empty, err := NewStaticSource(nil).Examples(context.Background(), "x")
	if err != nil || empty == nil {
		t.Errorf("expected empty non-nil list, got %v, %v", empty, err)
	}
}
