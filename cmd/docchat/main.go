package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docchat/internal/chat"
	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/embedding/onnx"
	"docchat/internal/embedding/openai"
	"docchat/internal/embedding/tfidf"
	"docchat/internal/llm"
	"docchat/internal/loader"
	"docchat/internal/logging"
	"docchat/internal/retriever"
	"docchat/internal/service"
	"docchat/internal/summarizer"
	"docchat/internal/tui"
	"docchat/internal/vectorstore"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
	"docchat/internal/vectorstore/sqlite"
	"docchat/internal/watcher"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: docchat [--config=config.yaml] [document.pdf|document.txt]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Assemble components
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "onnx", "":
		o := cfg.Embedder.ONNX
		local, err := onnx.New(onnx.Config{
			Model:       o.Model,
			ModelPath:   o.ModelPath,
			VocabPath:   o.VocabPath,
			LibraryPath: o.LibraryPath,
			Dimension:   o.Dimension,
			MaxTokens:   o.MaxTokens,
			OutputName:  o.OutputName,
		})
		if err != nil {
			log.Fatalf("onnx embedder init failed (set embedder.type: tfidf to run without a model): %v", err)
		}
		defer local.Close()
		emb = local
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "openai":
		client, err := openai.NewClient(ctx, openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive", "":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		log.Fatalf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var st vectorstore.Index
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		path := cfg.VectorStore.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.WorkDir, path)
		}
		st = sqlite.NewStorage(path, logger)
	case "memory":
		st = memory.NewStorage()
	case "qdrant":
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		}, logger)
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	defer st.Close()

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		log.Fatalf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	chatModel, err := llm.NewChatModel(ctx, llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		ModelEnv:  cfg.LLM.ModelEnv,
		Model:     cfg.LLM.Model,
		Timeout:   cfg.LLMTimeout(),
	})
	if err != nil {
		log.Fatalf("chat model init failed: %v", err)
	}

	pipeline := service.NewPipeline(ch, emb, st, sum, cfg.Summarizer.MaxSentences, logger)
	engine := chat.NewEngine(
		retriever.New(emb, st, cfg.Retriever.TopK),
		chatModel,
		chat.WithTopK(cfg.Retriever.TopK),
		chat.WithTimeout(cfg.LLMTimeout()),
		chat.WithLogger(logger),
	)
	session := service.NewSession(cfg.WorkDir, pipeline, engine, logger)
	logger.Info("session started", zap.String("session", session.ID()), zap.String("work_dir", cfg.WorkDir))

	p := tea.NewProgram(tui.New(session, flag.Arg(0)), tea.WithAltScreen())

	if cfg.WatchDir != "" {
		if samePath(cfg.WatchDir, cfg.WorkDir) {
			log.Fatalf("watch_dir must differ from work_dir: %s", cfg.WatchDir)
		}
		w := watcher.New(cfg.WatchDir, loader.Extensions(), func(path string) {
			p.Send(tui.UploadMsg{Path: path})
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			log.Fatalf("failed to watch %s: %v", cfg.WatchDir, err)
		}
		defer w.Stop()
	}

	if _, err := p.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		log.Fatal(err)
	}
}

func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	path := cfg.LogFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cfg.WorkDir, path)
	}
	return logging.New(cfg.Debug, path)
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
