package rag_service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/serisow/docanalyzer/config"
	"github.com/serisow/docanalyzer/rag_type"
)

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts documents into overlapping windows of at most chunkSize runes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

type SplitterOption func(*Splitter)

func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) { s.chunkSize = size }
}

func WithOverlap(overlap int) SplitterOption {
	return func(s *Splitter) { s.overlap = overlap }
}

func WithSeparators(separators ...string) SplitterOption {
	return func(s *Splitter) { s.separators = separators }
}

// NewSplitter defaults to the local profile. The chunk size must exceed the overlap.
func NewSplitter(opts ...SplitterOption) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  config.LocalChunkSize,
		overlap:    config.LocalChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.chunkSize, s.overlap)
	}
	return s, nil
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

// Window is one chunk of text. Overlap counts the leading runes repeated from the previous window.
type Window struct {
	Text    string
	Overlap int
}

// SplitDocuments splits every document and returns the chunks in document order.
func (s *Splitter) SplitDocuments(docs []rag_type.Document) []rag_type.Chunk {
	var chunks []rag_type.Chunk
	for docIndex, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		for i, w := range s.SplitText(doc.Content) {
			metadata := rag_type.CopyMetadata(doc.Metadata)
			metadata["document_index"] = docIndex
			metadata["chunk_index"] = i

			chunks = append(chunks, rag_type.Chunk{
				ID:       uuid.NewString(),
				Source:   doc.Source,
				Content:  w.Text,
				Index:    len(chunks),
				Overlap:  w.Overlap,
				Metadata: metadata,
			})
		}
	}
	return chunks
}

// SplitText returns the windows of text. Dropping the first overlap runes of every window and
// concatenating the rest yields text again.
func (s *Splitter) SplitText(text string) []Window {
	if text == "" {
		return nil
	}
	return s.merge(s.pieces(text, s.separators))
}

// pieces cuts text into contiguous parts of at most chunkSize runes, preferring the earliest
// separator that occurs in text. Separators stay attached to the part they terminate.
func (s *Splitter) pieces(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	sep, rest := "", []string(nil)
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep, rest = candidate, separators[i+1:]
			break
		}
	}
	if sep == "" {
		return strings.Split(text, "")
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= s.chunkSize {
			out = append(out, part)
			continue
		}
		out = append(out, s.pieces(part, rest)...)
	}
	return out
}

// merge packs pieces greedily. Each new window starts with the trailing pieces of the previous
// one, up to overlap runes, as long as the next piece still fits.
func (s *Splitter) merge(pieces []string) []Window {
	var (
		windows    []Window
		current    []string
		currentLen int
		carried    int
	)

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen+pieceLen > s.chunkSize && currentLen > carried {
			windows = append(windows, Window{Text: strings.Join(current, ""), Overlap: carried})

			for len(current) > 0 && (currentLen > s.overlap || currentLen+pieceLen > s.chunkSize) {
				currentLen -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
			carried = currentLen
		}
		current = append(current, piece)
		currentLen += pieceLen
	}

	if currentLen > carried {
		windows = append(windows, Window{Text: strings.Join(current, ""), Overlap: carried})
	}
	return windows
}
