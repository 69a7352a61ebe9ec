// Package service holds the per-session application core: the build pipeline
// run on every upload and the chat session wrapped around it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/loader"
	"docchat/internal/vectorstore"
)

// BuildResult describes a freshly built index generation.
type BuildResult struct {
	Handle   vectorstore.Handle
	Segments int
	Chunks   []domain.Chunk
	Summary  string
	Took     time.Duration
}

// Pipeline runs load → chunk → embed → index for one document.
type Pipeline struct {
	chunker             domain.Chunker
	embedder            embedding.Embedder
	index               vectorstore.Index
	summarizer          domain.Summarizer
	summaryMaxSentences int
	logger              *zap.Logger
}

// NewPipeline wires the build stages. summarizer may be nil.
func NewPipeline(chunker domain.Chunker, embedder embedding.Embedder, index vectorstore.Index, summarizer domain.Summarizer, summaryMaxSentences int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:             chunker,
		embedder:            embedder,
		index:               index,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		logger:              logger,
	}
}

// Build indexes the document at path as a new generation, replacing whatever
// the index held before. Every failure is returned as *domain.BuildError.
func (p *Pipeline) Build(ctx context.Context, path string) (BuildResult, error) {
	start := time.Now()
	fail := func(stage string, err error) (BuildResult, error) {
		p.logger.Warn("build failed", zap.String("path", path), zap.String("stage", stage), zap.Error(err))
		return BuildResult{}, &domain.BuildError{Stage: stage, Path: path, Err: err}
	}

	segments, err := loader.Load(ctx, path)
	if err != nil {
		return fail("load", err)
	}

	chunks, err := p.chunker.Chunk(segments)
	if err != nil {
		return fail("chunk", err)
	}
	if len(chunks) == 0 {
		return fail("chunk", errors.New("document produced no chunks"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := p.embedder.Prepare(ctx, texts); err != nil {
		return fail("embed", asEmbeddingError(err))
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fail("embed", asEmbeddingError(err))
	}

	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = domain.EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}
	handle, err := p.index.Rebuild(ctx, embedded)
	if err != nil {
		return fail("index", err)
	}

	res := BuildResult{Handle: handle, Segments: len(segments), Chunks: chunks}
	if p.summarizer != nil {
		var sb strings.Builder
		for _, s := range segments {
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
		summary, err := p.summarizer.Summarize(sb.String(), p.summaryMaxSentences)
		if err != nil {
			p.logger.Warn("summary failed", zap.String("path", path), zap.Error(err))
		}
		res.Summary = summary
	}
	res.Took = time.Since(start)

	p.logger.Info("document indexed",
		zap.String("path", path),
		zap.String("embedder", p.embedder.Name()),
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(chunks)),
		zap.String("generation", handle.Generation),
		zap.String("location", handle.Location),
		zap.Int("indexed", handle.Size),
		zap.Duration("took", res.Took))
	return res, nil
}

func asEmbeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbedding) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}
