// Package loader reads a directory of documents into memory.
package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"docqa/internal/domain"
)

var (
	// ErrNotDirectory is returned when the source path exists but is a file.
	ErrNotDirectory = errors.New("document source is not a directory")
	// ErrNoDocuments is returned when the directory holds no readable documents.
	ErrNoDocuments = errors.New("no supported documents found")
)

// DirectoryLoader loads every supported file under a directory, recursively.
type DirectoryLoader struct {
	dir    string
	logger *zap.Logger
}

// NewDirectoryLoader creates a loader rooted at dir.
func NewDirectoryLoader(dir string, logger *zap.Logger) *DirectoryLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryLoader{dir: dir, logger: logger}
}

// Load reads all documents. Documents are ordered by path.
func (l *DirectoryLoader) Load() ([]domain.Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading document directory %q: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", l.dir, ErrNotDirectory)
	}

	var paths []string
	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", l.dir, err)
	}
	sort.Strings(paths)

	documents := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		content, err := readFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if strings.TrimSpace(content) == "" {
			l.logger.Debug("skipping empty document", zap.String("path", p))
			continue
		}
		documents = append(documents, domain.Document{ID: hashString(p), Path: p, Content: content})
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%q: %w", l.dir, ErrNoDocuments)
	}
	l.logger.Info("documents loaded", zap.String("dir", l.dir), zap.Int("count", len(documents)))
	return documents, nil
}

func isSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}

func readFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
