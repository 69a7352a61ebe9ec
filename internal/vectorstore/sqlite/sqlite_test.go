package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/domain"
)

func fixture() []domain.EmbeddedChunk {
	return []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{ID: "chunk-00000", Text: "first page text", Index: 0, Metadata: map[string]any{"page": 1}}, Vector: []float64{0.6, 0.8, 0}},
		{Chunk: domain.Chunk{ID: "chunk-00001", Text: "second page text", Index: 1, Metadata: map[string]any{"page": 2}}, Vector: []float64{0, 0.6, 0.8}},
		{Chunk: domain.Chunk{ID: "chunk-00002", Text: "same as first", Index: 2}, Vector: []float64{0.6, 0.8, 0}},
	}
}

func TestStorage_RebuildAndQuery(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "chroma_db")
	s := NewStorage(dir, nil)
	defer s.Close()

	h, err := s.Rebuild(ctx, fixture())
	if err != nil {
		t.Fatal(err)
	}
	if h.Size != 3 || h.Location != dir {
		t.Errorf("unexpected handle %+v", h)
	}
	if _, err := os.Stat(filepath.Join(dir, dbFile)); err != nil {
		t.Fatalf("index file not persisted: %v", err)
	}

	res, err := s.Query(ctx, h, []float64{0, 0.6, 0.8}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].Chunk.Text != "second page text" || res[0].Chunk.Page() != 2 {
		t.Errorf("expected page-2 chunk first, got %+v", res[0])
	}
	if res[0].Score < 0.999999 {
		t.Errorf("expected maximal score, got %f", res[0].Score)
	}
}

func TestStorage_TiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(filepath.Join(t.TempDir(), "idx"), nil)
	defer s.Close()
	h, err := s.Rebuild(ctx, fixture())
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Query(ctx, h, []float64{0.6, 0.8, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Chunk.ID != "chunk-00000" || res[1].Chunk.ID != "chunk-00002" {
		t.Errorf("tie order wrong: %s, %s", res[0].Chunk.ID, res[1].Chunk.ID)
	}
}

func TestStorage_RebuildInvalidatesOldHandle(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(filepath.Join(t.TempDir(), "idx"), nil)
	defer s.Close()
	old, _ := s.Rebuild(ctx, fixture())
	fresh, err := s.Rebuild(ctx, fixture()[:1])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Query(ctx, old, []float64{1, 0, 0}, 3); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	res, err := s.Query(ctx, fresh, []float64{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Errorf("new generation should hold 1 chunk, got %d", len(res))
	}
}

func TestStorage_ExternallyRemoved(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "idx")
	s := NewStorage(dir, nil)
	defer s.Close()
	h, _ := s.Rebuild(ctx, fixture())
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Query(ctx, h, []float64{1, 0, 0}, 3); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestStorage_RebuildReplacesExistingDirectory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "idx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "leftover.bin")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStorage(dir, nil)
	defer s.Close()
	if _, err := s.Rebuild(ctx, fixture()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file should be gone, stat err = %v", err)
	}
}

func TestStorage_FailedRebuildLeavesNoGeneration(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "idx")
	s := NewStorage(dir, nil)
	defer s.Close()
	h, _ := s.Rebuild(ctx, fixture())
	if _, err := s.Rebuild(ctx, nil); err == nil {
		t.Fatal("expected error for empty rebuild")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("index directory should be absent after failed rebuild, stat err = %v", err)
	}
	if _, err := s.Query(ctx, h, []float64{1, 0, 0}, 1); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float64{0, -1.5, 3.25, 1e-300}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %v != %v", i, in[i], out[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
