// Package vectorstore holds index generations of embedded chunks and answers
// nearest-neighbour queries against the current one.
package vectorstore

import (
	"context"
	"errors"

	"docchat/internal/domain"
)

// Handle addresses one index generation. A handle stops being valid the
// moment another Rebuild succeeds or starts on the same Index.
type Handle struct {
	Generation string
	Location   string
	Size       int
}

// Index persists one generation of vectors at a time and supports similarity search.
type Index interface {
	// Rebuild destroys the current generation and stores chunks as a new one.
	Rebuild(ctx context.Context, chunks []domain.EmbeddedChunk) (Handle, error)
	// Query returns the k most similar chunks, highest score first.
	Query(ctx context.Context, h Handle, vector []float64, k int) ([]domain.SearchResult, error)
	Close() error
}

var (
	errNoChunks  = errors.New("no chunks to index")
	errDimension = errors.New("vector dimension mismatch")
)
