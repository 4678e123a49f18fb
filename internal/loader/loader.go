package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docbuddy/internal/domain"
)

// FileLoader reads documents from the local filesystem, dispatching on
// extension: PDFs go through the pdf extractor, plain text is read directly.
type FileLoader struct{}

func New() *FileLoader { return &FileLoader{} }

// Load reads the document at path and extracts its text content.
// A missing file maps to domain.ErrFileNotFound; a document with no
// extractable text maps to domain.ErrNoContent.
func (l *FileLoader) Load(ctx context.Context, path string) (domain.Document, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return domain.Document{}, err
	}

	var (
		content string
		pages   int
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		content, pages, err = extractPDF(ctx, path)
	case ".txt", ".md":
		var data []byte
		data, err = os.ReadFile(path)
		content = string(data)
		pages = 1
	default:
		return domain.Document{}, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
	if err != nil {
		return domain.Document{}, err
	}

	content = normalizeWhitespace(content)
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNoContent, path)
	}

	return domain.Document{
		ID:      hashString(path),
		Path:    path,
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Content: content,
		Pages:   pages,
	}, nil
}

// SupportedExtensions returns the file extensions this loader handles.
func (l *FileLoader) SupportedExtensions() []string {
	return []string{".pdf", ".txt", ".md"}
}

// normalizeWhitespace collapses runs of blank lines and trims trailing
// spaces so chunk boundaries don't land on extraction artifacts.
func normalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
