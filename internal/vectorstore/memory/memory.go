// Package memory keeps the index generation in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

// Storage is an in-memory vector index using brute-force cosine similarity.
type Storage struct {
	mu         sync.RWMutex
	generation string
	entries    []domain.EmbeddedChunk
}

func NewStorage() *Storage { return &Storage{} }

// Rebuild replaces the whole generation with chunks.
func (s *Storage) Rebuild(ctx context.Context, chunks []domain.EmbeddedChunk) (vectorstore.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = ""
	s.entries = nil
	if err := vectorstore.Validate(chunks); err != nil {
		return vectorstore.Handle{}, err
	}
	entries := make([]domain.EmbeddedChunk, len(chunks))
	copy(entries, chunks)
	s.entries = entries
	s.generation = uuid.NewString()
	return vectorstore.Handle{Generation: s.generation, Location: "memory", Size: len(entries)}, nil
}

func (s *Storage) Query(ctx context.Context, h vectorstore.Handle, vector []float64, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation == "" || h.Generation != s.generation {
		return nil, fmt.Errorf("%w: generation %q", domain.ErrIndexNotFound, h.Generation)
	}
	return vectorstore.TopK(s.entries, vector, k), nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = ""
	s.entries = nil
	return nil
}
