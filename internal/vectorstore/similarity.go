package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"docchat/internal/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK scores every entry against query and returns the best k. Entries must
// be in insertion order; equal scores keep that order.
func TopK(entries []domain.EmbeddedChunk, query []float64, k int) []domain.SearchResult {
	if k <= 0 || len(entries) == 0 {
		return nil
	}
	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = domain.SearchResult{Chunk: e.Chunk, Score: CosineSimilarity(e.Vector, query)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Validate checks that chunks is non-empty and every vector has the same
// non-zero dimension.
func Validate(chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return errNoChunks
	}
	dim := len(chunks[0].Vector)
	if dim == 0 {
		return errDimension
	}
	for _, c := range chunks {
		if len(c.Vector) != dim {
			return fmt.Errorf("%w: got %d, expected %d", errDimension, len(c.Vector), dim)
		}
	}
	return nil
}
