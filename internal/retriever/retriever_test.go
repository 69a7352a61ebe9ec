package retriever

import (
	"context"
	"errors"
	"testing"

	"docchat/internal/domain"
	"docchat/internal/embedding/tfidf"
	"docchat/internal/vectorstore"
	"docchat/internal/vectorstore/memory"
)

func TestRetrieve_returnsMostSimilarFirst(t *testing.T) {
	ctx := context.Background()
	texts := []string{
		"The orchard grows apples and pears.",
		"Submarines dive deep underwater.",
		"Bread is baked in the oven.",
		"The lighthouse guides ships at night.",
	}
	emb := tfidf.NewEmbedder()
	if err := emb.Prepare(ctx, texts); err != nil {
		t.Fatal(err)
	}
	vecs, _ := emb.EmbedBatch(ctx, texts)
	chunks := make([]domain.EmbeddedChunk, len(texts))
	for i := range texts {
		chunks[i] = domain.EmbeddedChunk{Chunk: domain.Chunk{ID: texts[i], Text: texts[i], Index: i}, Vector: vecs[i]}
	}
	idx := memory.NewStorage()
	h, err := idx.Rebuild(ctx, chunks)
	if err != nil {
		t.Fatal(err)
	}

	r := New(emb, idx, 0)
	if r.TopK() != DefaultTopK {
		t.Errorf("default k = %d", r.TopK())
	}
	res, err := r.Retrieve(ctx, h, "how deep do submarines dive?", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if res[0].Chunk.Text != texts[1] {
		t.Errorf("expected submarine chunk first, got %q", res[0].Chunk.Text)
	}
}

type failingEmbedder struct{ tfidf.Embedder }

func (*failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, domain.ErrEmbedding
}

func TestRetrieve_embeddingFailure(t *testing.T) {
	r := New(&failingEmbedder{}, memory.NewStorage(), 3)
	if _, err := r.Retrieve(context.Background(), vectorstore.Handle{}, "q", 0); !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}
