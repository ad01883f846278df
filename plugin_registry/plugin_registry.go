package plugin_registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/serisow/docanalyzer/rag_type"
)

// ErrUnsupportedFileType is returned when no loader is registered for a file's extension.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Loader turns a file on disk into documents.
type Loader interface {
	Load(ctx context.Context, path string) ([]rag_type.Document, error)
	Name() string
}

// PluginRegistry maps file extensions to loader factories.
type PluginRegistry struct {
	mu      sync.RWMutex
	loaders map[string]func() Loader
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		loaders: make(map[string]func() Loader),
	}
}

// RegisterLoader registers a loader factory for an extension such as ".pdf".
// Registering the same extension twice replaces the previous factory.
func (pr *PluginRegistry) RegisterLoader(ext string, factory func() Loader) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.loaders[normalizeExt(ext)] = factory
}

// GetLoader returns a new loader instance for the file at path.
func (pr *PluginRegistry) GetLoader(path string) (Loader, error) {
	factory, err := pr.lookup(path)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// CheckSupported fails with ErrUnsupportedFileType when no loader handles path,
// without instantiating one.
func (pr *PluginRegistry) CheckSupported(path string) error {
	_, err := pr.lookup(path)
	return err
}

// Supports reports whether a loader is registered for path.
func (pr *PluginRegistry) Supports(path string) bool {
	return pr.CheckSupported(path) == nil
}

func (pr *PluginRegistry) lookup(path string) (func() Loader, error) {
	ext := normalizeExt(filepath.Ext(path))

	pr.mu.RLock()
	factory, ok := pr.loaders[ext]
	pr.mu.RUnlock()

	if !ok || ext == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Base(path))
	}
	return factory, nil
}

// Extensions returns the registered extensions, sorted.
func (pr *PluginRegistry) Extensions() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	exts := make([]string, 0, len(pr.loaders))
	for ext := range pr.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extensions are matched case-insensitively and only the last suffix counts.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
