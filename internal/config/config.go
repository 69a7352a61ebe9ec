// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// ONNXEmbedderConfig locates a local pretrained sentence-embedding model.
type ONNXEmbedderConfig struct {
	Model       string `yaml:"model"`
	ModelPath   string `yaml:"model_path" validate:"required"`
	VocabPath   string `yaml:"vocab_path" validate:"required"`
	LibraryPath string `yaml:"library_path"`
	Dimension   int    `yaml:"dimension" validate:"gt=0"`
	MaxTokens   int    `yaml:"max_tokens" validate:"gt=2"`
	OutputName  string `yaml:"output_name"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" validate:"oneof=onnx tfidf openai"`
	ONNX   *ONNXEmbedderConfig   `yaml:"onnx,omitempty" validate:"required_if=Type onnx"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" validate:"required_if=Type openai"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" validate:"oneof=recursive sentence"`
	ChunkSize         int    `yaml:"chunk_size" validate:"gt=0"`
	Overlap           int    `yaml:"overlap" validate:"gte=0,ltfield=ChunkSize"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" validate:"gte=0"`
	OverlapSentences  int    `yaml:"overlap_sentences" validate:"gte=0"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type" validate:"oneof=sqlite memory qdrant"`
	Path   string        `yaml:"path"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty" validate:"required_if=Type qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// RetrieverConfig controls how many chunks feed each answer.
type RetrieverConfig struct {
	TopK int `yaml:"top_k" validate:"gt=0"`
}

// LLMConfig configures the chat-completion endpoint. Temperature is always 0.
type LLMConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	ModelEnv    string `yaml:"model_env"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" validate:"oneof=frequency none"`
	MaxSentences int    `yaml:"max_sentences" validate:"gte=0"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Debug       bool              `yaml:"debug"`
	LogFile     string            `yaml:"log_file"`
	WorkDir     string            `yaml:"work_dir" validate:"required"`
	WatchDir    string            `yaml:"watch_dir"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	LLM         LLMConfig         `yaml:"llm"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// LLMTimeout returns the bound on a single chat-completion call.
func (c *AppConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/docchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field constraints declared in struct tags.
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		LogFile:     "docchat.log",
		WorkDir:     "data",
		Embedder:    EmbedderConfig{Type: "onnx", ONNX: defaultONNX()},
		Chunker:     ChunkerConfig{Type: "recursive", ChunkSize: 500, Overlap: 50, SentencesPerChunk: 5, OverlapSentences: 1},
		VectorStore: VectorStoreConfig{Type: "sqlite", Path: "chroma_db"},
		Retriever:   RetrieverConfig{TopK: 3},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKeyEnv:   "GROQ_API_KEY",
			ModelEnv:    "GROQ_MODEL",
			Model:       "llama3-70b-8192",
			TimeoutSecs: 60,
		},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
	}
}

func defaultONNX() *ONNXEmbedderConfig {
	dir := filepath.Join("models", "all-MiniLM-L6-v2")
	return &ONNXEmbedderConfig{
		Model:      "all-MiniLM-L6-v2",
		ModelPath:  filepath.Join(dir, "model.onnx"),
		VocabPath:  filepath.Join(dir, "vocab.txt"),
		Dimension:  384,
		MaxTokens:  256,
		OutputName: "last_hidden_state",
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "onnx" {
		if cfg.Embedder.ONNX == nil {
			cfg.Embedder.ONNX = defaultONNX()
		}
		def := defaultONNX()
		o := cfg.Embedder.ONNX
		if o.Model == "" {
			o.Model = def.Model
		}
		if o.ModelPath == "" {
			o.ModelPath = def.ModelPath
		}
		if o.VocabPath == "" {
			o.VocabPath = def.VocabPath
		}
		if o.Dimension == 0 {
			o.Dimension = def.Dimension
		}
		if o.MaxTokens == 0 {
			o.MaxTokens = def.MaxTokens
		}
		if o.OutputName == "" {
			o.OutputName = def.OutputName
		}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "docchat"
		}
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "chroma_db"
	}
}
