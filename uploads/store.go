package uploads

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/serisow/docanalyzer/services/rag_service"
)

const dirPrefix = "upload-"

// Upload is a received file staged on disk for the length of one request.
type Upload struct {
	Dir  string
	Path string
	Size int64
}

// Store stages uploads in per-request directories under a root directory and
// sweeps directories left behind by requests that never released them.
type Store struct {
	root   string
	logger *slog.Logger

	mu     sync.RWMutex
	active map[string]time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &rag_service.FileSystemError{Op: "create upload dir", Path: root, Err: err}
	}
	return &Store{
		root:   root,
		logger: logger,
		active: make(map[string]time.Time),
	}, nil
}

// Stage copies r into a fresh directory, keeping the base name of filename so
// that the extension still selects the loader.
func (s *Store) Stage(filename string, r io.Reader) (*Upload, error) {
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		return nil, fmt.Errorf("invalid upload file name %q", filename)
	}

	dir, err := os.MkdirTemp(s.root, dirPrefix+"*")
	if err != nil {
		return nil, &rag_service.FileSystemError{Op: "create temp dir", Path: s.root, Err: err}
	}

	s.mu.Lock()
	s.active[dir] = timeProvider.Now()
	s.mu.Unlock()

	upload := &Upload{Dir: dir, Path: filepath.Join(dir, base)}
	f, err := os.OpenFile(upload.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		s.Release(upload)
		return nil, &rag_service.FileSystemError{Op: "create", Path: upload.Path, Err: err}
	}

	upload.Size, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.Release(upload)
		return nil, &rag_service.FileSystemError{Op: "write", Path: upload.Path, Err: err}
	}
	return upload, nil
}

// Release removes the upload's directory. It is safe to call more than once.
func (s *Store) Release(u *Upload) error {
	s.mu.Lock()
	delete(s.active, u.Dir)
	s.mu.Unlock()

	if err := os.RemoveAll(u.Dir); err != nil {
		s.logger.Error("Failed to remove upload",
			slog.String("dir", u.Dir),
			slog.String("error", err.Error()))
		return &rag_service.FileSystemError{Op: "remove", Path: u.Dir, Err: err}
	}
	return nil
}

func (s *Store) Root() string { return s.root }

// StartCleanup periodically removes upload directories older than threshold
// that no request holds.
func (s *Store) StartCleanup(threshold time.Duration, cleanupInterval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.performCleanup(threshold)
			case <-s.stopCleanup:
				s.cleanupTicker.Stop()
				return
			}
		}
	}()
}

func (s *Store) StopCleanup() {
	s.stopOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
		}
	})
}

func (s *Store) performCleanup(threshold time.Duration) int {
	now := timeProvider.Now()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Error("Failed to list upload dir",
			slog.String("dir", s.root),
			slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())

		s.mu.RLock()
		_, inUse := s.active[dir]
		s.mu.RUnlock()
		if inUse {
			continue
		}

		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) <= threshold {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove stale upload",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		removed++
		s.logger.Info("Deleted stale upload due to expiration", slog.String("dir", dir))
	}
	return removed
}

// ActiveCount reports how many uploads are currently staged.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
