// Package retriever turns a question into the most similar indexed chunks.
package retriever

import (
	"context"

	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/vectorstore"
)

const DefaultTopK = 3

type Retriever struct {
	embedder embedding.Embedder
	index    vectorstore.Index
	topK     int
}

func New(embedder embedding.Embedder, index vectorstore.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// TopK returns the configured number of chunks per query.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve embeds query and returns its nearest chunks from the generation h.
// k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, h vectorstore.Handle, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.index.Query(ctx, h, vec, k)
}
