package document

import "strings"

// Overlay layers OCR text over a base document. A page is served from OCR
// only when its own trimmed text is empty and the trimmed OCR text for that
// page is not; such pages drop blank lines. Every other page comes from the
// base unchanged.
type Overlay struct {
	lines [][]string
	subst []bool
}

// NewOverlay builds an overlay from the pages of base and the OCR text keyed
// by page index. OCR entries for pages outside the base are ignored.
func NewOverlay(base *Pages, ocrPages map[int]string) *Overlay {
	n := base.PageCount()
	o := &Overlay{lines: make([][]string, n), subst: make([]bool, n)}
	for i, t := range base.texts {
		ot := strings.TrimSpace(ocrPages[i])
		if strings.TrimSpace(t) != "" || ot == "" {
			o.lines[i] = SplitLines(t)
			continue
		}
		var kept []string
		for _, l := range SplitLines(ot) {
			if strings.TrimSpace(l) != "" {
				kept = append(kept, l)
			}
		}
		o.lines[i] = kept
		o.subst[i] = true
	}
	return o
}

func (o *Overlay) PageCount() int { return len(o.lines) }

func (o *Overlay) PageLines(i int) ([]string, error) {
	if i < 0 || i >= len(o.lines) {
		return nil, ErrPageOutOfRange
	}
	return append([]string(nil), o.lines[i]...), nil
}

// PageText returns the effective text of page i.
func (o *Overlay) PageText(i int) (string, error) {
	if i < 0 || i >= len(o.lines) {
		return "", ErrPageOutOfRange
	}
	return strings.Join(o.lines[i], "\n"), nil
}

func (o *Overlay) AllText() string {
	chunks := make([]string, len(o.lines))
	for i, l := range o.lines {
		chunks[i] = strings.Join(l, "\n")
	}
	return strings.Join(chunks, "\n")
}

func (o *Overlay) FindPagesContaining(needle string, caseInsensitive bool) []int {
	texts := make([]string, len(o.lines))
	for i, l := range o.lines {
		texts[i] = strings.Join(l, "\n")
	}
	return findPages(texts, needle, caseInsensitive)
}

// Substituted returns the ascending indices of pages served from OCR text.
func (o *Overlay) Substituted() []int {
	var out []int
	for i, s := range o.subst {
		if s {
			out = append(out, i)
		}
	}
	return out
}
