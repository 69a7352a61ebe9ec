// Package embedding maps chunk text to fixed-length vectors.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Prepare is called once per index rebuild with the chunk corpus; local models
// use it to load their state, remote ones ignore it.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}
