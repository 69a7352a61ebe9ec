package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, h vectorstore.Handle, query string, k int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeModel struct {
	reply string
	err   error
	seen  [][]*schema.Message
	block bool
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = append(f.seen, input)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func readyConversation() *Conversation {
	c := &Conversation{}
	c.Attach(vectorstore.Handle{Generation: "g1"})
	return c
}

func TestAsk_idleConversation(t *testing.T) {
	m := &fakeModel{reply: "x"}
	e := NewEngine(&fakeRetriever{}, m)
	_, err := e.Ask(context.Background(), &Conversation{}, "hello?")
	if !errors.Is(err, domain.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if len(m.seen) != 0 {
		t.Error("idle conversation must not call the model")
	}
}

func TestAsk_appendsTurnsAndComposesPrompt(t *testing.T) {
	r := &fakeRetriever{results: []domain.SearchResult{
		{Chunk: domain.Chunk{Text: "passage one"}},
		{Chunk: domain.Chunk{Text: "passage two"}},
	}}
	m := &fakeModel{reply: "forty-two"}
	e := NewEngine(r, m, WithTopK(3), WithTimeout(time.Second))
	conv := readyConversation()
	conv.Append(
		domain.ChatMessage{Role: domain.RoleUser, Content: "earlier question", Kind: domain.KindAnswer},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: "earlier answer", Kind: domain.KindAnswer},
	)

	answer, err := e.Ask(context.Background(), conv, "what is the answer?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "forty-two" {
		t.Errorf("answer = %q", answer)
	}
	if r.queries[0] != "what is the answer?" {
		t.Errorf("retriever got %q", r.queries[0])
	}

	prompt := m.seen[0]
	if len(prompt) != 4 {
		t.Fatalf("expected system + 2 history + question, got %d messages", len(prompt))
	}
	if prompt[0].Role != schema.System || !strings.Contains(prompt[0].Content, "passage one\n\npassage two") {
		t.Errorf("system message missing context: %q", prompt[0].Content)
	}
	if prompt[1].Content != "earlier question" || prompt[2].Role != schema.Assistant {
		t.Errorf("history not replayed in order: %+v %+v", prompt[1], prompt[2])
	}
	if prompt[3].Role != schema.User || prompt[3].Content != "what is the answer?" {
		t.Errorf("last message should be the question, got %+v", prompt[3])
	}

	h := conv.History()
	if len(h) != 4 || h[2].Content != "what is the answer?" || h[3].Content != "forty-two" {
		t.Errorf("history not appended: %+v", h)
	}
}

func TestAsk_generationFailureLeavesHistory(t *testing.T) {
	e := NewEngine(&fakeRetriever{}, &fakeModel{err: errors.New("503 service unavailable")})
	conv := readyConversation()
	_, err := e.Ask(context.Background(), conv, "q")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if len(conv.History()) != 0 {
		t.Error("failed ask should not append to history")
	}
}

func TestAsk_retrievalFailureKeepsKind(t *testing.T) {
	e := NewEngine(&fakeRetriever{err: domain.ErrIndexNotFound}, &fakeModel{})
	_, err := e.Ask(context.Background(), readyConversation(), "q")
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestAsk_timeout(t *testing.T) {
	e := NewEngine(&fakeRetriever{}, &fakeModel{block: true}, WithTimeout(20*time.Millisecond))
	_, err := e.Ask(context.Background(), readyConversation(), "q")
	if !errors.Is(err, domain.ErrGeneration) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed-out generation error, got %v", err)
	}
}

func TestBuildMessages_skipsNotices(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "asked while idle", Kind: domain.KindWarning},
		{Role: domain.RoleAssistant, Content: "⚠️ Upload a document first.", Kind: domain.KindWarning},
		{Role: domain.RoleUser, Content: "real question", Kind: domain.KindAnswer},
		{Role: domain.RoleAssistant, Content: "real answer", Kind: domain.KindAnswer},
	}
	msgs := BuildMessages(nil, history, "next")
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "real question" {
		t.Errorf("notice replayed: %+v", msgs[1])
	}
}

func TestConversation_States(t *testing.T) {
	c := &Conversation{}
	if c.State() != Idle {
		t.Fatal("new conversation should be idle")
	}
	c.Append(domain.ChatMessage{Role: domain.RoleUser, Content: "x"})
	c.Attach(vectorstore.Handle{Generation: "g"})
	if c.State() != Ready || len(c.History()) != 0 {
		t.Fatal("attach should make the conversation ready with empty history")
	}
	c.Append(domain.ChatMessage{Role: domain.RoleUser, Content: "y"})
	c.Clear()
	if c.State() != Ready || len(c.History()) != 0 {
		t.Fatal("clear should keep the index and empty history")
	}
	c.Detach()
	if c.State() != Idle {
		t.Fatal("detach should return to idle")
	}
}
