// Package document exposes the text of a PDF as pages of lines, independent
// of the library that parsed it.
package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPageOutOfRange is returned when a page index is outside [0, PageCount).
var ErrPageOutOfRange = errors.New("page index out of range")

// Document is a read-only text view over a paginated document. Page indices
// are zero-based.
type Document interface {
	PageCount() int
	// PageLines returns the page text split into lines with trailing
	// whitespace removed.
	PageLines(i int) ([]string, error)
	// AllText joins the text of every page with a newline.
	AllText() string
	// FindPagesContaining returns the ascending indices of pages whose text
	// contains needle.
	FindPagesContaining(needle string, caseInsensitive bool) []int
}

// Pages is an in-memory Document built from per-page text.
type Pages struct {
	texts []string
}

// FromTexts builds a Document from already extracted page texts.
func FromTexts(texts ...string) *Pages {
	return &Pages{texts: append([]string(nil), texts...)}
}

// Load reads the text of every page of f into memory.
func Load(f File) (*Pages, error) {
	n := f.PageCount()
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		t, err := f.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("page %d text: %w", i, err)
		}
		texts[i] = t
	}
	return &Pages{texts: texts}, nil
}

func (p *Pages) PageCount() int { return len(p.texts) }

// PageText returns the raw text of page i.
func (p *Pages) PageText(i int) (string, error) {
	if i < 0 || i >= len(p.texts) {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	return p.texts[i], nil
}

func (p *Pages) PageLines(i int) ([]string, error) {
	t, err := p.PageText(i)
	if err != nil {
		return nil, err
	}
	return SplitLines(t), nil
}

func (p *Pages) AllText() string { return strings.Join(p.texts, "\n") }

func (p *Pages) FindPagesContaining(needle string, caseInsensitive bool) []int {
	return findPages(p.texts, needle, caseInsensitive)
}

// SplitLines splits text on any line ending and right-trims each line. A
// trailing line ending does not produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	raw := strings.Split(text, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimRight(l, " \t\f\v")
	}
	return out
}

func findPages(texts []string, needle string, caseInsensitive bool) []int {
	if needle == "" {
		return nil
	}
	if caseInsensitive {
		needle = strings.ToLower(needle)
	}
	var hits []int
	for i, t := range texts {
		if caseInsensitive {
			t = strings.ToLower(t)
		}
		if strings.Contains(t, needle) {
			hits = append(hits, i)
		}
	}
	return hits
}
