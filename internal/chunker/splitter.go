// Package chunker splits extracted page text into overlapping passages.
//
// Splitting is recursive: text is cut on the largest separator present
// (paragraph, line, word, character), neighbouring pieces are merged back up
// to the chunk size, and any piece still too long is split again with the
// next separator. Lengths are counted in runes.
package chunker

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/katakuxiko/luminarag/internal/model"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators go from paragraph to single character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is deterministic for a fixed configuration and clock.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
	now        func() time.Time
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets how many characters consecutive chunks may share.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = append([]string(nil), seps...)
		}
	}
}

// WithClock sets the source of the ingestion timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Splitter) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// ChunkSize returns the effective chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the effective overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks every page of fileName. Each chunk inherits its page metadata
// plus source_type, file_name and timestamp. Blank chunks are dropped.
// Chunk ids are left empty; the ingestor assigns them.
func (s *Splitter) Split(fileName string, pages []model.Page) []model.Chunk {
	stamp := s.now().Format(time.RFC3339)

	var out []model.Chunk
	for _, p := range pages {
		for _, text := range s.SplitText(p.Text) {
			meta := p.Metadata.Clone()
			meta[model.MetaSourceType] = model.SourceTypePDF
			meta[model.MetaFileName] = fileName
			meta[model.MetaTimestamp] = stamp
			out = append(out, model.Chunk{Text: text, Metadata: meta})
		}
	}
	return out
}

// SplitText splits a single text into trimmed, non-empty chunks.
func (s *Splitter) SplitText(text string) []string {
	var out []string
	for _, chunk := range s.splitRecursive(text, s.separators) {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitRecursive(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks no longer than chunkSize, carrying up to
// overlap characters of trailing pieces into the next chunk. Pieces already
// carry their separator, so they are concatenated directly.
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := join(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := join(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator cuts text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into runes.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		pieces = make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, sep+part)
	}
	return pieces
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
