package exampleindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

// Backends accepted by Open.
const (
	BackendFlat    = "flat"
	BackendChromem = "chromem"
)

// Options describes one example set to load at startup.
type Options struct {
	Name         string // collection name and log label, e.g. "intent"
	MetadataFile string
	IndexFile    string // optional persisted vectors
	WriteIndex   bool   // persist freshly computed vectors to IndexFile
	Backend      string
	Embedder     domain.Embedder
	Dimensions   int
	Concurrency  int
}

// LoadRecords reads and decodes a metadata file.
func LoadRecords(path string) ([]example.Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	records, err := example.ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata %s: %w", domain.ErrIndexCorrupt, path, err)
	}
	return records, nil
}

// Open loads the metadata, reads or computes the vectors and builds the index.
// Any inconsistency between metadata and vectors is an error.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Index, error) {
	records, err := LoadRecords(opts.MetadataFile)
	if err != nil {
		return nil, err
	}

	vectors, fromFile, err := loadOrEmbed(ctx, opts, records)
	if err != nil {
		return nil, err
	}
	if len(vectors) > 0 && opts.Dimensions > 0 && len(vectors[0]) != opts.Dimensions {
		return nil, fmt.Errorf("%w: %s vectors have dimension %d, encoder produces %d",
			domain.ErrIndexCorrupt, opts.Name, len(vectors[0]), opts.Dimensions)
	}

	if !fromFile && opts.WriteIndex && opts.IndexFile != "" {
		if err := WriteVectors(opts.IndexFile, vectors); err != nil {
			logger.Warn("Failed to persist example vectors", zap.String("set", opts.Name), zap.Error(err))
		} else {
			logger.Info("Persisted example vectors", zap.String("set", opts.Name), zap.String("file", opts.IndexFile))
		}
	}

	var idx Index
	switch opts.Backend {
	case BackendChromem:
		idx, err = NewChromem(ctx, opts.Name, records, vectors, opts.Embedder, opts.Concurrency)
	case BackendFlat, "":
		idx, err = NewFlat(records, vectors)
	default:
		return nil, fmt.Errorf("unknown index backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Example index ready",
		zap.String("set", opts.Name),
		zap.String("backend", opts.Backend),
		zap.Int("records", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.Bool("from_file", fromFile),
	)
	return idx, nil
}

func loadOrEmbed(ctx context.Context, opts Options, records []example.Record) ([][]float32, bool, error) {
	if opts.IndexFile != "" {
		vectors, err := ReadVectors(opts.IndexFile)
		switch {
		case err == nil:
			if len(vectors) != len(records) {
				return nil, false, fmt.Errorf("%w: %s has %d vectors for %d records",
					domain.ErrIndexCorrupt, opts.IndexFile, len(vectors), len(records))
			}
			return vectors, true, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, false, err
		}
	}

	if opts.Embedder == nil {
		return nil, false, fmt.Errorf("no vector file and no embedder for example set %s", opts.Name)
	}
	vectors, err := EmbedRecords(ctx, opts.Embedder, records, opts.Concurrency)
	if err != nil {
		return nil, false, err
	}
	return vectors, false, nil
}

// EmbedRecords embeds every record query with at most concurrency calls in flight.
// Row order follows record order.
func EmbedRecords(ctx context.Context, e domain.Embedder, records []example.Record, concurrency int) ([][]float32, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	vectors := make([][]float32, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, r := range records {
		g.Go(func() error {
			res, err := e.Embed(gctx, r.Query())
			if err != nil {
				return fmt.Errorf("embed example %d: %w", i, err)
			}
			vectors[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per example
	}
	return vectors, nil
}
