package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/chat"
	"docchat/internal/domain"
	"docchat/internal/loader"
)

// NoDocumentWarning is the reply to questions asked before any document is loaded.
const NoDocumentWarning = "⚠️ Upload a document first."

// Notice reports the outcome of a successful upload.
type Notice struct {
	Document string
	Pages    int
	Chunks   int
	Summary  string
}

func (n Notice) String() string {
	pages := "1 page"
	if n.Pages != 1 {
		pages = fmt.Sprintf("%d pages", n.Pages)
	}
	return fmt.Sprintf("✅ %s indexed (%s, %d chunks), chatbot ready!", n.Document, pages, n.Chunks)
}

// Session is one user's conversation with one document at a time. All
// operations are serialised; each runs to completion before the next starts.
type Session struct {
	id       string
	workDir  string
	pipeline *Pipeline
	engine   *chat.Engine
	logger   *zap.Logger

	mu       sync.Mutex
	conv     chat.Conversation
	document string
}

func NewSession(workDir string, pipeline *Pipeline, engine *chat.Engine, logger *zap.Logger) *Session {
	id := uuid.NewString()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:       id,
		workDir:  workDir,
		pipeline: pipeline,
		engine:   engine,
		logger:   logger.With(zap.String("session", id)),
	}
}

func (s *Session) ID() string { return s.id }

// UploadFile uploads the local file at path.
func (s *Session) UploadFile(ctx context.Context, path string) (Notice, error) {
	dst, err := s.destination(filepath.Base(path))
	if err != nil {
		return Notice{}, s.buildFailed(path, "upload", err)
	}
	if err := checkFormat(dst); err != nil {
		return Notice{}, s.buildFailed(path, "load", err)
	}
	if same(path, dst) {
		return s.build(ctx, dst)
	}
	f, err := os.Open(path)
	if err != nil {
		return Notice{}, s.buildFailed(path, "upload", fmt.Errorf("%w: %w", domain.ErrLoad, err))
	}
	defer f.Close()
	return s.Upload(ctx, filepath.Base(path), f)
}

// Upload stores the document under the working directory, rebuilds the index
// from it and starts a fresh conversation. On failure the session is left
// without a document.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (Notice, error) {
	dst, err := s.destination(name)
	if err != nil {
		return Notice{}, s.buildFailed(name, "upload", err)
	}
	// Nothing is written for formats the loader would reject; the work dir
	// also holds the log and the index.
	if err := checkFormat(dst); err != nil {
		return Notice{}, s.buildFailed(dst, "load", err)
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return Notice{}, s.buildFailed(dst, "upload", err)
	}
	if err := writeFile(dst, r); err != nil {
		return Notice{}, s.buildFailed(dst, "upload", err)
	}
	return s.build(ctx, dst)
}

func (s *Session) build(ctx context.Context, path string) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The previous generation is destroyed by the rebuild, so stop answering from it now.
	s.conv.Detach()
	s.document = ""

	res, err := s.pipeline.Build(ctx, path)
	if err != nil {
		return Notice{}, err
	}
	s.conv.Attach(res.Handle)
	s.document = filepath.Base(path)
	return Notice{
		Document: s.document,
		Pages:    res.Segments,
		Chunks:   res.Handle.Size,
		Summary:  res.Summary,
	}, nil
}

// Submit records question and the reply to it, and returns the reply.
// Questions asked without a document get NoDocumentWarning; failures become
// error entries. Blank questions are ignored and return a zero message.
func (s *Session) Submit(ctx context.Context, question string) domain.ChatMessage {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ChatMessage{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conv.State() == chat.Idle {
		return s.appendExchange(question, NoDocumentWarning, domain.KindWarning)
	}
	if _, err := s.engine.Ask(ctx, &s.conv, question); err != nil {
		s.logger.Warn("ask failed", zap.Error(err))
		if errors.Is(err, domain.ErrIndexNotFound) {
			s.conv.Detach()
		}
		return s.appendExchange(question, "❌ Error: "+err.Error(), domain.KindError)
	}
	h := s.conv.History()
	return h[len(h)-1]
}

// appendExchange records an unanswered question and its notice. The user turn
// takes the notice's kind so it is not replayed to the model later.
func (s *Session) appendExchange(question, reply string, kind domain.MessageKind) domain.ChatMessage {
	msg := domain.ChatMessage{Role: domain.RoleAssistant, Content: reply, Kind: kind}
	s.conv.Append(domain.ChatMessage{Role: domain.RoleUser, Content: question, Kind: kind}, msg)
	return msg
}

// Clear empties the transcript. The loaded document stays queryable.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Clear()
}

func (s *Session) Transcript() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.History()
}

func (s *Session) State() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.State()
}

// Document returns the base name of the loaded document, or "".
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

func (s *Session) buildFailed(path, stage string, err error) error {
	s.mu.Lock()
	s.conv.Detach()
	s.document = ""
	s.mu.Unlock()
	s.logger.Warn("upload failed", zap.String("path", path), zap.Error(err))
	return &domain.BuildError{Stage: stage, Path: path, Err: err}
}

func (s *Session) destination(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.workDir, base), nil
}

func checkFormat(path string) error {
	if !loader.Supported(path) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func same(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
