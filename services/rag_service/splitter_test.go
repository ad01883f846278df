package rag_service

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serisow/docanalyzer/config"
	"github.com/serisow/docanalyzer/rag_type"
)

func reconstruct(windows []Window) string {
	var b strings.Builder
	for _, w := range windows {
		b.WriteString(string([]rune(w.Text)[w.Overlap:]))
	}
	return b.String()
}

func randomText(r *rand.Rand, n int) string {
	words := []string{"alpha", "beta", "gamma", "délta", "epsilon", "ζeta", "supercalifragilisticexpialidocious", "a"}
	seps := []string{" ", " ", " ", "\n", "\n\n", ". "}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(words[r.Intn(len(words))])
		b.WriteString(seps[r.Intn(len(seps))])
	}
	return b.String()
}

func TestNewSplitter(t *testing.T) {
	t.Run("defaults to local profile", func(t *testing.T) {
		s, err := NewSplitter()
		require.NoError(t, err)
		assert.Equal(t, config.LocalChunkSize, s.ChunkSize())
		assert.Equal(t, config.LocalChunkOverlap, s.Overlap())
	})

	t.Run("remote profile", func(t *testing.T) {
		s, err := NewSplitter(WithChunkSize(config.RemoteChunkSize), WithOverlap(config.RemoteChunkOverlap))
		require.NoError(t, err)
		assert.Equal(t, 1000, s.ChunkSize())
		assert.Equal(t, 200, s.Overlap())
	})

	invalid := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			assert.Error(t, err)
		})
	}
}

func TestSplitText_SmallContent(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(100), WithOverlap(20))
	require.NoError(t, err)

	windows := s.SplitText("This is a small piece of content.")
	require.Len(t, windows, 1)
	assert.Equal(t, "This is a small piece of content.", windows[0].Text)
	assert.Equal(t, 0, windows[0].Overlap)
}

func TestSplitText_Empty(t *testing.T) {
	s, err := NewSplitter()
	require.NoError(t, err)
	assert.Empty(t, s.SplitText(""))
}

func TestSplitText_WordWindows(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(10), WithOverlap(5))
	require.NoError(t, err)

	windows := s.SplitText("aaaa bbbb cccc dddd")
	require.Len(t, windows, 3)
	assert.Equal(t, Window{Text: "aaaa bbbb ", Overlap: 0}, windows[0])
	assert.Equal(t, Window{Text: "bbbb cccc ", Overlap: 5}, windows[1])
	assert.Equal(t, Window{Text: "cccc dddd", Overlap: 5}, windows[2])
}

func TestSplitText_AvoidsMidWordSplits(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(40), WithOverlap(10))
	require.NoError(t, err)

	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	windows := s.SplitText(text)
	require.Greater(t, len(windows), 1)
	for _, w := range windows[:len(windows)-1] {
		assert.True(t, strings.HasSuffix(w.Text, " "), "window %q ends mid-word", w.Text)
	}
}

func TestSplitText_CharacterFallback(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(100), WithOverlap(20))
	require.NoError(t, err)

	text := strings.Repeat("x", 250)
	windows := s.SplitText(text)
	require.Len(t, windows, 3)
	assert.Equal(t, text, reconstruct(windows))
}

func TestSplitText_RoundTripAndBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	params := []struct{ size, overlap int }{
		{1, 0}, {2, 1}, {7, 3}, {10, 0}, {25, 24}, {50, 10}, {500, 100}, {1000, 200},
	}

	for _, p := range params {
		s, err := NewSplitter(WithChunkSize(p.size), WithOverlap(p.overlap))
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			text := randomText(r, r.Intn(400)+1)
			windows := s.SplitText(text)

			require.Equal(t, text, reconstruct(windows), "size=%d overlap=%d", p.size, p.overlap)
			for j, w := range windows {
				assert.LessOrEqual(t, utf8.RuneCountInString(w.Text), p.size)
				assert.LessOrEqual(t, w.Overlap, p.overlap)
				assert.Greater(t, utf8.RuneCountInString(w.Text), w.Overlap)
				if j == 0 {
					assert.Equal(t, 0, w.Overlap)
					continue
				}
				prev := []rune(windows[j-1].Text)
				cur := []rune(w.Text)
				assert.Equal(t, string(prev[len(prev)-w.Overlap:]), string(cur[:w.Overlap]))
			}
		}
	}
}

func TestSplitDocuments(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(10), WithOverlap(5))
	require.NoError(t, err)

	docs := []rag_type.Document{
		{Source: "a.csv", Content: "name: Ada", Metadata: map[string]any{"row": 0}},
		{Source: "a.csv", Content: "   "},
		{Source: "a.csv", Content: "aaaa bbbb cccc", Metadata: map[string]any{"row": 2}},
	}

	chunks := s.SplitDocuments(docs)
	require.Len(t, chunks, 3)

	seen := map[string]bool{}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "a.csv", c.Source)
		assert.False(t, seen[c.ID], "duplicate chunk id")
		seen[c.ID] = true
	}
	assert.Equal(t, 0, chunks[0].Metadata["row"])
	assert.Equal(t, 2, chunks[1].Metadata["row"])
	assert.Equal(t, 0, chunks[1].Overlap)
	assert.Equal(t, 5, chunks[2].Overlap)

	// the source document metadata is not mutated
	_, ok := docs[0].Metadata["chunk_index"]
	assert.False(t, ok)
}
