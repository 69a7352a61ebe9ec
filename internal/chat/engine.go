package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

const systemTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, h vectorstore.Handle, query string, k int) ([]domain.SearchResult, error)
}

// Engine composes retrieved context and history into a chat-completion call.
type Engine struct {
	retriever Retriever
	model     model.BaseChatModel
	topK      int
	timeout   time.Duration
	logger    *zap.Logger
}

type Option func(*Engine)

// WithTimeout bounds each remote call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithTopK(k int) Option { return func(e *Engine) { e.topK = k } }

func NewEngine(r Retriever, m model.BaseChatModel, opts ...Option) *Engine {
	e := &Engine{retriever: r, model: m, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers question from the conversation's index and history, then
// appends the question and the answer to the history. On failure the history
// is left unchanged.
func (e *Engine) Ask(ctx context.Context, conv *Conversation, question string) (string, error) {
	h, ok := conv.Index()
	if !ok {
		return "", domain.ErrNoDocument
	}

	results, err := e.retriever.Retrieve(ctx, h, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}

	msgs := BuildMessages(results, conv.History(), question)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := e.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}
	e.logger.Debug("answer generated",
		zap.Int("context_chunks", len(results)),
		zap.Int("history", len(msgs)-2),
		zap.Duration("took", time.Since(start)))

	conv.Append(
		domain.ChatMessage{Role: domain.RoleUser, Content: question, Kind: domain.KindAnswer},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: out.Content, Kind: domain.KindAnswer},
	)
	return out.Content, nil
}

// BuildMessages lays out the prompt: a system message carrying the retrieved
// passages in retrieval order, the prior turns in order, then the question.
// Warning and error entries are transcript notices and are not replayed.
func BuildMessages(results []domain.SearchResult, history []domain.ChatMessage, question string) []*schema.Message {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(fmt.Sprintf(systemTemplate, strings.Join(texts, "\n\n"))))
	for _, m := range history {
		if m.Kind != domain.KindAnswer {
			continue
		}
		switch m.Role {
		case domain.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return append(msgs, schema.UserMessage(question))
}
