package vectorstore

import (
	"math"
	"testing"

	"docchat/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	if s := CosineSimilarity([]float64{1, 0}, []float64{2, 0}); math.Abs(s-1) > 1e-12 {
		t.Errorf("parallel vectors: got %f", s)
	}
	if s := CosineSimilarity([]float64{1, 0}, []float64{0, 3}); s != 0 {
		t.Errorf("orthogonal vectors: got %f", s)
	}
	if s := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); s != 0 {
		t.Errorf("zero vector: got %f", s)
	}
	if s := CosineSimilarity([]float64{1}, []float64{1, 1}); s != 0 {
		t.Errorf("length mismatch: got %f", s)
	}
}

func TestTopK_tiesKeepInsertionOrder(t *testing.T) {
	entries := []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{ID: "a"}, Vector: []float64{0, 1}},
		{Chunk: domain.Chunk{ID: "b"}, Vector: []float64{1, 0}},
		{Chunk: domain.Chunk{ID: "c"}, Vector: []float64{0, 2}},
		{Chunk: domain.Chunk{ID: "d"}, Vector: []float64{1, 0}},
	}
	got := TopK(entries, []float64{1, 0}, 3)
	want := []string{"b", "d", "a"}
	for i, id := range want {
		if got[i].Chunk.ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Chunk.ID, id)
		}
	}
	if len(TopK(entries, []float64{1, 0}, 10)) != 4 {
		t.Error("k larger than the index should return everything")
	}
}
