// Package logging builds the zap logger. The terminal belongs to the chat UI,
// so output goes to a file.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// New returns a zap logger writing to path. When debug is true, uses
// development config (human-readable, debug level); otherwise production
// config (JSON, info level). An empty path disables logging.
func New(debug bool, path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
