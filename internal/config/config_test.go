package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_missingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.ChunkSize != 500 || cfg.Chunker.Overlap != 50 {
		t.Errorf("unexpected chunker defaults: %+v", cfg.Chunker)
	}
	if cfg.Embedder.Type != "onnx" || cfg.Embedder.ONNX == nil || cfg.Embedder.ONNX.Model != "all-MiniLM-L6-v2" {
		t.Errorf("unexpected embedder defaults: %+v", cfg.Embedder)
	}
	if cfg.Retriever.TopK != 3 {
		t.Errorf("top_k default = %d", cfg.Retriever.TopK)
	}
	if cfg.VectorStore.Type != "sqlite" || cfg.VectorStore.Path != "chroma_db" {
		t.Errorf("unexpected vector store defaults: %+v", cfg.VectorStore)
	}
	if cfg.LLM.APIKeyEnv != "GROQ_API_KEY" || cfg.LLM.ModelEnv != "GROQ_MODEL" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_partialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
debug: true
chunker:
  chunk_size: 800
embedder:
  type: openai
  openai:
    base_url: "http://localhost:8080/v1"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Chunker.ChunkSize != 800 || cfg.Chunker.Overlap != 50 || cfg.Chunker.Type != "recursive" {
		t.Errorf("chunker = %+v", cfg.Chunker)
	}
	if cfg.Embedder.OpenAI.Model != "sentence-transformers/all-MiniLM-L6-v2" || cfg.Embedder.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("openai defaults not applied: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.WorkDir != "data" {
		t.Errorf("work_dir = %q", cfg.WorkDir)
	}
}

func TestLoad_invalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown store":     "vector_store:\n  type: faiss\n",
		"overlap too large": "chunker:\n  chunk_size: 100\n  overlap: 100\n",
		"qdrant missing":    "vector_store:\n  type: qdrant\n",
		"bad yaml":          "chunker: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.WatchDir = "inbox"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.WatchDir != "inbox" {
		t.Errorf("watch_dir = %q", got.WatchDir)
	}
}

func TestLoad_onnxPartialSectionFilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "embedder:\n  type: onnx\n  onnx:\n    model_path: /opt/models/minilm.onnx\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	o := cfg.Embedder.ONNX
	if o.ModelPath != "/opt/models/minilm.onnx" {
		t.Errorf("model_path = %q", o.ModelPath)
	}
	if o.VocabPath != filepath.Join("models", "all-MiniLM-L6-v2", "vocab.txt") || o.Dimension != 384 || o.MaxTokens != 256 {
		t.Errorf("onnx defaults not applied: %+v", o)
	}
}
