package exampleindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/ingres/internal/domain"
)

// Vector file layout: magic, dimension (uint32), count (uint32), then count rows
// of dimension little-endian float32 values.
var fileMagic = [4]byte{'I', 'G', 'X', 'I'}

const headerSize = 12

// ReadVectors reads a persisted vector file.
func ReadVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vector file %s: %w", path, err)
	}
	vectors, err := decodeVectors(data)
	if err != nil {
		return nil, fmt.Errorf("vector file %s: %w", path, err)
	}
	return vectors, nil
}

func decodeVectors(data []byte) ([][]float32, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], fileMagic[:]) {
		return nil, fmt.Errorf("%w: missing header", domain.ErrIndexCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	count := int(binary.LittleEndian.Uint32(data[8:12]))

	want := headerSize + dim*count*4
	if len(data) != want {
		return nil, fmt.Errorf("%w: expected %d bytes for %d rows of %d, got %d",
			domain.ErrIndexCorrupt, want, count, dim, len(data))
	}

	vectors := make([][]float32, count)
	off := headerSize
	for i := range vectors {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = row
	}
	return vectors, nil
}

// WriteVectors persists vectors atomically (temp file + rename).
func WriteVectors(path string, vectors [][]float32) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create vector directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vectors-*")
	if err != nil {
		return fmt.Errorf("create temp vector file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	if err := encodeVectors(w, vectors); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush vector file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close vector file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename vector file: %w", err)
	}
	return nil
}

func encodeVectors(w io.Writer, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	header := make([]byte, headerSize)
	copy(header, fileMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(dim))          //nolint:gosec // dims are small
	binary.LittleEndian.PutUint32(header[8:], uint32(len(vectors))) //nolint:gosec // example sets are small
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, 4)
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: row %d has dimension %d, expected %d", domain.ErrIndexCorrupt, i, len(v), dim)
		}
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("write row %d: %w", i, err)
			}
		}
	}
	return nil
}
