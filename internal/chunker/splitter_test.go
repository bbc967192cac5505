package chunker

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katakuxiko/luminarag/internal/model"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := New()
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithOverlap(-3))
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
	})

	t.Run("overlap clamped below size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, s.Overlap())
	})
}

func TestSplitText_PrefersParagraphs(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(0))
	got := s.SplitText("aaaa\n\nbbbb\n\ncccc")
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, got)
}

func TestSplitText_WordOverlap(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(5))
	got := s.SplitText("one two three four five six")
	assert.Equal(t, []string{"one two", "two three", "four five", "five six"}, got)
}

func TestSplitText_FallsBackToCharacters(t *testing.T) {
	s := New(WithChunkSize(4), WithOverlap(0))
	got := s.SplitText("abcdefghij")
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, got)
}

func TestSplitText_BlankInput(t *testing.T) {
	s := New()
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n\n  \n "))
}

func TestSplitText_TinyChunksAreTrimmed(t *testing.T) {
	s := New(WithChunkSize(1))
	assert.Equal(t, []string{"a", "b"}, s.SplitText("a b"))

	for _, c := range s.SplitText("x  y\n\n z\t") {
		assert.NotEmpty(t, c)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestSplitText_SizeBound(t *testing.T) {
	s := New(WithChunkSize(120), WithOverlap(30))
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40) +
		"\n\n" + strings.Repeat("Съешь же ещё этих мягких французских булок. ", 30)

	chunks := s.SplitText(text)
	require.Greater(t, len(chunks), 10)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 120)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	pages := []model.Page{
		{Text: strings.Repeat("alpha beta gamma delta. ", 200), Metadata: model.Metadata{model.MetaPage: 0}},
		{Text: strings.Repeat("epsilon zeta eta theta.\n", 120), Metadata: model.Metadata{model.MetaPage: 1}},
	}
	s := New(WithChunkSize(300), WithOverlap(60), WithClock(fixedClock))

	first := s.Split("a.pdf", pages)
	second := s.Split("a.pdf", pages)

	require.NotEmpty(t, first)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestSplit_MetadataAndEmptyPages(t *testing.T) {
	pages := []model.Page{
		{Text: "First page text.", Metadata: model.Metadata{model.MetaSource: "a.pdf", model.MetaPage: 0}},
		{Text: "  \n\n ", Metadata: model.Metadata{model.MetaSource: "a.pdf", model.MetaPage: 1}},
		{Text: "Third page text.", Metadata: model.Metadata{model.MetaSource: "a.pdf", model.MetaPage: 2}},
	}
	s := New(WithClock(fixedClock))

	chunks := s.Split("a.pdf", pages)
	require.Len(t, chunks, 2)

	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
		assert.Empty(t, c.ID)
		assert.Equal(t, "pdf", c.Metadata[model.MetaSourceType])
		assert.Equal(t, "a.pdf", c.Metadata[model.MetaFileName])
		assert.Equal(t, "2026-10-15T09:30:00Z", c.Metadata[model.MetaTimestamp])
	}
	assert.Equal(t, 0, chunks[0].Metadata[model.MetaPage])
	assert.Equal(t, 2, chunks[1].Metadata[model.MetaPage])

	// page metadata must not be mutated
	assert.NotContains(t, pages[0].Metadata, model.MetaSourceType)
}
