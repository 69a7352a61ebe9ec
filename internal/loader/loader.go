// Package loader reads uploaded documents into raw text segments.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// Extensions lists the file extensions Load accepts.
func Extensions() []string { return []string{".pdf", ".txt"} }

// Supported reports whether path has an extension the loader understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Load reads the file at path and returns its text segments: one per page for
// PDF, one for the whole file for plain text.
func Load(ctx context.Context, path string) ([]domain.Segment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var segments []domain.Segment
	switch ext {
	case ".pdf":
		segments, err = loadPDF(content, path)
	case ".txt":
		segments = loadPlain(content, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if !hasText(segments) {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrLoad, filepath.Base(path))
	}
	return segments, nil
}

func loadPDF(content []byte, path string) (segments []domain.Segment, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		segments = append(segments, domain.Segment{
			Text:     text,
			Metadata: map[string]any{domain.MetaSource: path, domain.MetaPage: i},
		})
	}
	return segments, nil
}

// loadPlain decodes content as UTF-8, replacing invalid sequences.
func loadPlain(content []byte, path string) []domain.Segment {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return []domain.Segment{{
		Text:     string(content),
		Metadata: map[string]any{domain.MetaSource: path},
	}}
}

func hasText(segments []domain.Segment) bool {
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}
