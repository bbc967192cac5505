package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strings"

	rscpdf "rsc.io/pdf"

	"github.com/katakuxiko/luminarag/internal/model"
)

// Extractor turns raw PDF bytes into ordered pages.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) ([]model.Page, error)
}

// New returns the extractor registered under kind ("rsc" or "pdftotext").
func New(kind string) (Extractor, error) {
	switch kind {
	case "", "rsc":
		return TextExtractor{}, nil
	case "pdftotext":
		return NewPopplerExtractor(nil), nil
	default:
		return nil, fmt.Errorf("unknown pdf extractor %q", kind)
	}
}

// TextExtractor reads page content streams with rsc.io/pdf.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, name string, data []byte) (pages []model.Page, err error) {
	// rsc.io/pdf panics on malformed streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", model.ErrExtraction, name, r)
		}
	}()

	r, err := rscpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExtraction, name, err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		texts := p.Content().Text
		if !hasWidths(texts) {
			return nil, fmt.Errorf("%w: %s: page %d: font has no glyph widths, word gaps are lost", model.ErrExtraction, name, i)
		}
		pages = append(pages, newPage(name, i-1, pageText(texts)))
	}
	return pages, nil
}

// hasWidths reports whether word gaps can be recovered from the runs.
// rsc.io/pdf drops space glyphs, so without /Widths every run has W=0 and
// the words of a line run together.
func hasWidths(texts []rscpdf.Text) bool {
	if len(texts) < 2 {
		return true
	}
	for _, t := range texts {
		if t.W > 0 {
			return true
		}
	}
	return false
}

// pageText joins text runs, breaking lines where the baseline moves and
// inserting a space where runs are visibly apart.
func pageText(texts []rscpdf.Text) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(t.Y-prev.Y) > size*0.5:
				sb.WriteString("\n")
			case t.X-(prev.X+prev.W) > size*0.15:
				sb.WriteString(" ")
			}
		}
		sb.WriteString(strings.ReplaceAll(t.S, "\x00", ""))
	}
	return sb.String()
}

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PopplerExtractor shells out to pdftotext; pages are separated by form feeds.
type PopplerExtractor struct {
	runner CommandRunner
}

func NewPopplerExtractor(runner CommandRunner) *PopplerExtractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &PopplerExtractor{runner: runner}
}

func (e *PopplerExtractor) Extract(ctx context.Context, name string, data []byte) ([]model.Page, error) {
	tmp, err := os.CreateTemp("", "lumina-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExtraction, name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExtraction, name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExtraction, name, err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext %s: %v", model.ErrExtraction, name, err)
	}
	return SplitPages(name, string(out)), nil
}

// SplitPages cuts pdftotext output on form feeds. A trailing empty page
// after the final form feed is dropped.
func SplitPages(name, out string) []model.Page {
	raw := strings.Split(out, "\f")
	if len(raw) > 0 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]model.Page, 0, len(raw))
	for i, text := range raw {
		pages = append(pages, newPage(name, i, text))
	}
	return pages
}

func newPage(name string, index int, text string) model.Page {
	return model.Page{
		Text: Normalize(text),
		Metadata: model.Metadata{
			model.MetaSource: name,
			model.MetaPage:   index,
		},
	}
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\x0b]+`)
	blankLines = regexp.MustCompile(`\n[ \t]*\n(\s*\n)*`)
)

// Normalize strips NUL bytes and carriage returns, squeezes horizontal
// whitespace and collapses runs of blank lines into one paragraph break.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRun.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
