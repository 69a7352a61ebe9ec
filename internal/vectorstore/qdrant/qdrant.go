// Package qdrant stores the index generation in a Qdrant collection over its
// REST API. The collection is dropped and recreated on every rebuild.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	generation string
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config, logger *zap.Logger) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var errNotFound = errors.New("not found")

// Rebuild drops the collection, recreates it with cosine distance and
// uploads chunks with their sequence number as point id.
func (s *Storage) Rebuild(ctx context.Context, chunks []domain.EmbeddedChunk) (vectorstore.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation = ""
	collURL := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	if err := s.do(ctx, http.MethodDelete, collURL, nil, nil); err != nil && !errors.Is(err, errNotFound) {
		return vectorstore.Handle{}, fmt.Errorf("drop collection: %w", err)
	}
	if err := vectorstore.Validate(chunks); err != nil {
		return vectorstore.Handle{}, err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     len(chunks[0].Vector),
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, collURL, body, nil); err != nil {
		return vectorstore.Handle{}, fmt.Errorf("create collection: %w", err)
	}

	gen := uuid.NewString()
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     i,
			"vector": c.Vector,
			"payload": map[string]any{
				"generation": gen,
				"seq":        i,
				"chunk_id":   c.Chunk.ID,
				"text":       c.Chunk.Text,
				"metadata":   c.Chunk.Metadata,
			},
		}
	}
	if err := s.do(ctx, http.MethodPut, collURL+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		return vectorstore.Handle{}, fmt.Errorf("upsert points: %w", err)
	}

	s.generation = gen
	s.logger.Info("qdrant collection rebuilt",
		zap.String("collection", s.collection),
		zap.String("generation", gen),
		zap.Int("points", len(points)))
	return vectorstore.Handle{Generation: gen, Location: collURL, Size: len(chunks)}, nil
}

type searchHit struct {
	Score   float64 `json:"score"`
	Payload struct {
		Generation string         `json:"generation"`
		Seq        int            `json:"seq"`
		ChunkID    string         `json:"chunk_id"`
		Text       string         `json:"text"`
		Metadata   map[string]any `json:"metadata"`
	} `json:"payload"`
}

func (s *Storage) Query(ctx context.Context, h vectorstore.Handle, vector []float64, k int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if current == "" || h.Generation != current {
		return nil, fmt.Errorf("%w: generation %q", domain.ErrIndexNotFound, h.Generation)
	}
	if k <= 0 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []searchHit `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: collection %s", domain.ErrIndexNotFound, s.collection)
		}
		return nil, err
	}

	hits := resp.Result
	for _, hit := range hits {
		if hit.Payload.Generation != h.Generation {
			return nil, fmt.Errorf("%w: collection holds generation %q", domain.ErrIndexNotFound, hit.Payload.Generation)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Payload.Seq < hits[j].Payload.Seq
	})
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:       hit.Payload.ChunkID,
				Text:     hit.Payload.Text,
				Index:    hit.Payload.Seq,
				Metadata: hit.Payload.Metadata,
			},
			Score: hit.Score,
		})
	}
	return results, nil
}

// Close forgets the generation; the collection stays on the server.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = ""
	return nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
