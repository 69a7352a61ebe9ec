// Package onnx runs a pretrained sentence-embedding model (all-MiniLM-L6-v2
// by default) locally through ONNX Runtime.
package onnx

// DefaultModel is the sentence-transformers model the defaults point at.
const DefaultModel = "all-MiniLM-L6-v2"

// Config locates the exported model and its vocabulary.
type Config struct {
	// Model is the name the embedder reports; it does not affect loading.
	Model     string
	ModelPath string
	VocabPath string
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string
	Dimension   int
	MaxTokens   int
	// OutputName is the token-level hidden-state output, mean pooled.
	OutputName string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Dimension == 0 {
		c.Dimension = 384
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 256
	}
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
	}
	return c
}
