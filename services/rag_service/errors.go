package rag_service

import (
	"context"
	"errors"
	"fmt"

	"github.com/serisow/docanalyzer/plugin_registry"
)

var (
	// ErrUnsupportedFileType is returned before any I/O when no loader handles the extension.
	ErrUnsupportedFileType = plugin_registry.ErrUnsupportedFileType

	// ErrNotReady is returned when a document is analyzed before one has been processed.
	ErrNotReady = errors.New("no document has been processed")

	// ErrExtraction indicates a loader could not read text out of a file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmptyDocument indicates a file produced no text to index.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrUpstream matches every UpstreamError.
	ErrUpstream = errors.New("upstream service error")

	// ErrFileSystem matches every FileSystemError.
	ErrFileSystem = errors.New("file system error")
)

// UpstreamError wraps a failure of the embedding, generation or index service.
type UpstreamError struct {
	Service string
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// FileSystemError wraps a temp file write or delete failure.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() []error {
	return []error{ErrFileSystem, e.Err}
}

// upstream leaves caller cancellation unwrapped so it is not blamed on the service.
func upstream(service, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Service: service, Op: op, Err: err}
}

// ErrorKind classifies an error for logs.
type ErrorKind string

const (
	KindUnsupportedFileType ErrorKind = "unsupported_file_type"
	KindUpstream            ErrorKind = "upstream"
	KindPrecondition        ErrorKind = "precondition"
	KindFileSystem          ErrorKind = "filesystem"
	KindExtraction          ErrorKind = "extraction"
	KindInternal            ErrorKind = "internal"
)

func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFileType):
		return KindUnsupportedFileType
	case errors.Is(err, ErrNotReady):
		return KindPrecondition
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrFileSystem):
		return KindFileSystem
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrEmptyDocument):
		return KindExtraction
	default:
		return KindInternal
	}
}
