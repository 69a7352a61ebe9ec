// Package chunker splits loaded document segments into retrieval chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docchat/internal/domain"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// defaultSeparators go from the largest unit to the smallest: paragraph,
// line, sentence, word, character.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker splits text on the largest separator that keeps pieces
// within chunkSize characters, merging neighbouring pieces into windows and
// carrying up to overlap characters from the end of one window into the next.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &RecursiveChunker{chunkSize: chunkSize, overlap: overlap, separators: defaultSeparators}
}

// Chunk splits every segment and tags each chunk with its segment's metadata.
func (c *RecursiveChunker) Chunk(segments []domain.Segment) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, seg := range segments {
		for _, text := range c.SplitText(seg.Text) {
			chunks = append(chunks, newChunk(len(chunks), text, seg.Metadata))
		}
	}
	return chunks, nil
}

// SplitText returns the windows of a single text.
func (c *RecursiveChunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, strings.TrimSpace(piece))
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge packs pieces into windows of at most chunkSize characters.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		l := runeLen(p)
		if total+l > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				out = append(out, doc)
			}
			for total > c.overlap || (total+l > c.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeep splits text after each separator so that joining the pieces
// reproduces the input. An empty separator splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newChunk(seq int, text string, meta map[string]any) domain.Chunk {
	m := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		m[k] = v
	}
	m[domain.MetaChunk] = seq
	return domain.Chunk{
		ID:       fmt.Sprintf("chunk-%05d", seq),
		Text:     text,
		Index:    seq,
		Metadata: m,
	}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
