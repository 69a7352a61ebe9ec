package chunker

import (
	"regexp"
	"strings"

	"docchat/internal/domain"
)

// SentenceChunker groups a fixed number of sentences per chunk, repeating
// overlapSentences at the start of the next chunk.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

func (c *SentenceChunker) Chunk(segments []domain.Segment) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, seg := range segments {
		sentences := c.sentences(seg.Text)
		for i := 0; i < len(sentences); {
			end := min(i+c.sentencesPerChunk, len(sentences))
			chunks = append(chunks, newChunk(len(chunks), strings.Join(sentences[i:end], " "), seg.Metadata))
			if end == len(sentences) {
				break
			}
			i = end - c.overlapSentences
		}
	}
	return chunks, nil
}

func (c *SentenceChunker) sentences(text string) []string {
	raw := c.splitter.FindAllString(text, -1)
	var out []string
	consumed := 0
	for _, s := range raw {
		consumed += len(s)
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	// Trailing text without terminal punctuation.
	if consumed < len(text) {
		if idx := strings.LastIndexAny(text, ".!?"); idx >= 0 {
			if tail := strings.TrimSpace(text[idx+1:]); tail != "" {
				out = append(out, tail)
			}
		} else if t := strings.TrimSpace(text); t != "" && len(out) == 0 {
			out = append(out, t)
		}
	}
	return out
}
