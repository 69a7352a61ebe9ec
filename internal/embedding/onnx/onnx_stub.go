//go:build !cgo
// +build !cgo

package onnx

import (
	"context"
	"errors"
)

// Embedder stub when built without CGO (see onnx.go for the real implementation).
type Embedder struct{}

// New returns an error when built without CGO.
func New(Config) (*Embedder, error) {
	return nil, errors.New("onnx embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *Embedder) Name() string { return "onnx" }
func (e *Embedder) Prepare(context.Context, []string) error { return nil }
func (e *Embedder) Dimension() int { return 0 }
func (e *Embedder) Embed(context.Context, string) ([]float64, error) { return nil, errors.New("onnx unavailable") }
func (e *Embedder) EmbedBatch(context.Context, []string) ([][]float64, error) { return nil, errors.New("onnx unavailable") }
func (e *Embedder) Close() error { return nil }
