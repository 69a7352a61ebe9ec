// Package llm creates the chat-completion model used to answer questions.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-70b-8192"
)

// Config defines the configuration for creating a chat model.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	ModelEnv  string
	Model     string
	Timeout   time.Duration
}

// ResolveModel returns the model name, preferring the ModelEnv variable.
func (c Config) ResolveModel() string {
	if c.ModelEnv != "" {
		if m := os.Getenv(c.ModelEnv); m != "" {
			return m
		}
	}
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

// NewChatModel creates an OpenAI-compatible chat model with temperature 0.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", cfg.APIKeyEnv)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var temperature float32

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       cfg.ResolveModel(),
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
}
