package domain

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageKind separates real answers from warnings and failures so callers
// never have to inspect message text.
type MessageKind string

const (
	KindAnswer  MessageKind = "answer"
	KindWarning MessageKind = "warning"
	KindError   MessageKind = "error"
)

// ChatMessage is a single turn of the conversation transcript.
type ChatMessage struct {
	Role    Role
	Content string
	Kind    MessageKind
}

// Segment is a raw piece of text produced by the loader, one per PDF page or
// one per text file.
type Segment struct {
	Text     string
	Metadata map[string]any
}

// Chunk is a bounded window of document text used for embedding and retrieval.
type Chunk struct {
	ID       string
	Text     string
	Index    int
	Metadata map[string]any
}

// Page returns the 1-based source page of the chunk, or 0 when unknown.
func (c Chunk) Page() int {
	switch v := c.Metadata[MetaPage].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// EmbeddedChunk pairs a chunk with its vector.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float64
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Metadata keys set by the loader and the chunker.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaChunk  = "chunk"
)

// Chunker splits loaded segments into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(segments []Segment) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
