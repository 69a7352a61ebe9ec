package llm

import (
	"context"
	"testing"
)

func TestResolveModel(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_MODEL", "")
	cfg := Config{ModelEnv: "DOCCHAT_TEST_MODEL"}
	if got := cfg.ResolveModel(); got != DefaultModel {
		t.Errorf("got %q, want default", got)
	}
	cfg.Model = "mixtral-8x7b-32768"
	if got := cfg.ResolveModel(); got != "mixtral-8x7b-32768" {
		t.Errorf("got %q, want configured model", got)
	}
	t.Setenv("DOCCHAT_TEST_MODEL", "llama-3.1-8b-instant")
	if got := cfg.ResolveModel(); got != "llama-3.1-8b-instant" {
		t.Errorf("got %q, want env model", got)
	}
}

func TestNewChatModel_missingKey(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_KEY", "")
	if _, err := NewChatModel(context.Background(), Config{APIKeyEnv: "DOCCHAT_TEST_KEY"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNewChatModel_withKey(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_KEY", "gsk_test")
	m, err := NewChatModel(context.Background(), Config{APIKeyEnv: "DOCCHAT_TEST_KEY"})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("expected a model")
	}
}
