package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const filePrefix = "docanalyzer"

// dailyFile is an io.Writer that reopens its target whenever the date changes.
// It is shared by every handler derived through WithAttrs or WithGroup.
type dailyFile struct {
	mu              sync.Mutex
	logDir          string
	currentFile     *os.File
	currentFileName string
	now             func() time.Time
}

func (d *dailyFile) rotateIfNeeded() error {
	fileName := fmt.Sprintf("%s-%s.log", filePrefix, d.now().Format("2006-01-02"))
	if fileName == d.currentFileName {
		return nil
	}

	if d.currentFile != nil {
		d.currentFile.Close()
	}

	f, err := os.OpenFile(filepath.Join(d.logDir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		d.currentFile = nil
		d.currentFileName = ""
		return fmt.Errorf("failed to open log file: %w", err)
	}

	d.currentFile = f
	d.currentFileName = fileName
	return nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return d.currentFile.Write(p)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.currentFile == nil {
		return nil
	}
	err := d.currentFile.Close()
	d.currentFile = nil
	d.currentFileName = ""
	return err
}

// DailyFileHandler writes every record to the console and to a per-day file in logDir.
type DailyFileHandler struct {
	file           *dailyFile
	fileHandler    slog.Handler
	defaultHandler slog.Handler
}

// NewDailyFileHandler sends console output to out, usually os.Stdout.
func NewDailyFileHandler(logDir string, out io.Writer, opts *slog.HandlerOptions) (*DailyFileHandler, error) {
	return newDailyFileHandler(logDir, out, opts, time.Now)
}

func newDailyFileHandler(logDir string, stdout io.Writer, opts *slog.HandlerOptions, now func() time.Time) (*DailyFileHandler, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file := &dailyFile{logDir: logDir, now: now}
	file.mu.Lock()
	err := file.rotateIfNeeded()
	file.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &DailyFileHandler{
		file:           file,
		fileHandler:    slog.NewTextHandler(file, opts),
		defaultHandler: slog.NewTextHandler(stdout, opts),
	}, nil
}

func (h *DailyFileHandler) Handle(ctx context.Context, r slog.Record) error {
	// A failing file still leaves stdout.
	err := h.fileHandler.Handle(ctx, r)
	if err2 := h.defaultHandler.Handle(ctx, r); err2 != nil && err == nil {
		err = err2
	}
	return err
}

func (h *DailyFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &DailyFileHandler{
		file:           h.file,
		fileHandler:    h.fileHandler.WithAttrs(attrs),
		defaultHandler: h.defaultHandler.WithAttrs(attrs),
	}
}

func (h *DailyFileHandler) WithGroup(name string) slog.Handler {
	return &DailyFileHandler{
		file:           h.file,
		fileHandler:    h.fileHandler.WithGroup(name),
		defaultHandler: h.defaultHandler.WithGroup(name),
	}
}

func (h *DailyFileHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.defaultHandler.Enabled(ctx, level)
}

func (h *DailyFileHandler) Close() error {
	return h.file.Close()
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
