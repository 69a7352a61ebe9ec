package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrLoad              = errors.New("load document")
	ErrEmbedding         = errors.New("embedding")
	ErrIndexNotFound     = errors.New("index not found")
	ErrGeneration        = errors.New("generation")
	ErrNoDocument        = errors.New("no document loaded")
)

// BuildError wraps any failure of the upload-to-index pipeline.
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s (%s): %v", e.Path, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
