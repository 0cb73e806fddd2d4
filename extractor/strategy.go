package extractor

import (
	"sort"

	"github.com/KPoloska/dac-agent/document"
)

// Strategy names reported with each hit.
const (
	MethodPageLines  = "page_lines"
	MethodTypedRegex = "typed_regex"
	MethodTextLabel  = "text_label"
	MethodTextNear   = "text_near"
)

// Hit is the outcome of resolving a value. Page is -1 for document-wide
// strategies or when nothing was found.
type Hit struct {
	Value    string
	Strategy string
	Page     int
}

// Found reports whether the hit carries a value.
func (h Hit) Found() bool { return h.Value != "" }

// AnswerHit is the outcome of resolving a yes/no answer.
type AnswerHit struct {
	Answer   Answer
	Strategy string
	Page     int
}

// ValueStrategy is one way of finding a scalar field.
type ValueStrategy interface {
	Name() string
	FindValue(doc document.Document) (value string, page int)
}

// AnswerStrategy is one way of finding a yes/no answer.
type AnswerStrategy interface {
	Name() string
	FindAnswer(doc document.Document) (answer Answer, page int)
}

// Resolve tries strategies in order and returns the first non-empty value.
func Resolve(doc document.Document, strategies ...ValueStrategy) Hit {
	for _, s := range strategies {
		if v, page := s.FindValue(doc); v != "" {
			return Hit{Value: v, Strategy: s.Name(), Page: page}
		}
	}
	return Hit{Page: -1}
}

// ResolveAnswer tries strategies in order and returns the first yes or no.
func ResolveAnswer(doc document.Document, strategies ...AnswerStrategy) AnswerHit {
	for _, s := range strategies {
		if a, page := s.FindAnswer(doc); a.Known() {
			return AnswerHit{Answer: a, Strategy: s.Name(), Page: page}
		}
	}
	return AnswerHit{Page: -1}
}

// PageLabels runs ValueAfterLabels over every page in order. A value that
// starts with one of the labels is a label echo and is skipped.
type PageLabels struct {
	Labels []string
}

func (PageLabels) Name() string { return MethodPageLines }

func (s PageLabels) FindValue(doc document.Document) (string, int) {
	for i := 0; i < doc.PageCount(); i++ {
		lines, err := doc.PageLines(i)
		if err != nil {
			continue
		}
		v := ValueAfterLabels(lines, s.Labels)
		if v == "" {
			continue
		}
		echo := false
		for _, l := range s.Labels {
			if hasPrefixFold(v, l) {
				echo = true
				break
			}
		}
		if !echo {
			return v, i
		}
	}
	return "", -1
}

// Typed applies a typed extractor such as CMSProductID to the whole text.
type Typed struct {
	Extract func(text string) string
}

func (Typed) Name() string { return MethodTypedRegex }

func (s Typed) FindValue(doc document.Document) (string, int) {
	return s.Extract(doc.AllText()), -1
}

// TextLabels applies ValueFromText to the whole text.
type TextLabels struct {
	Labels []string
}

func (TextLabels) Name() string { return MethodTextLabel }

func (s TextLabels) FindValue(doc document.Document) (string, int) {
	return ValueFromText(doc.AllText(), s.Labels), -1
}

// LineRule extracts a raw answer string from the lines of one page.
type LineRule func(lines []string) string

// AfterLabels is a LineRule backed by ValueAfterLabels.
func AfterLabels(labels ...string) LineRule {
	return func(lines []string) string { return ValueAfterLabels(lines, labels) }
}

// Stacked is a LineRule backed by StackedValue.
func Stacked(fragments ...string) LineRule {
	return func(lines []string) string { return StackedValue(lines, fragments) }
}

// PageAnswers looks for an answer on the pages mentioning any of Anchors,
// in ascending page order, trying Rules in order on each page.
type PageAnswers struct {
	Anchors []string
	Rules   []LineRule
}

func (PageAnswers) Name() string { return MethodPageLines }

func (s PageAnswers) FindAnswer(doc document.Document) (Answer, int) {
	for _, p := range CandidatePages(doc, s.Anchors) {
		lines, err := doc.PageLines(p)
		if err != nil {
			continue
		}
		for _, rule := range s.Rules {
			if a := YesNo(rule(lines)); a.Known() {
				return a, p
			}
		}
	}
	return AnswerNone, -1
}

// NearAnswers applies YesNoNear to the whole text.
type NearAnswers struct {
	Patterns []string
	// Window defaults to DefaultWindow.
	Window int
}

func (NearAnswers) Name() string { return MethodTextNear }

func (s NearAnswers) FindAnswer(doc document.Document) (Answer, int) {
	return YesNoNear(doc.AllText(), s.Patterns, s.Window), -1
}

// CandidatePages returns the sorted, de-duplicated pages that contain any of
// anchors, case-insensitively.
func CandidatePages(doc document.Document, anchors []string) []int {
	seen := map[int]bool{}
	var out []int
	for _, a := range anchors {
		for _, p := range doc.FindPagesContaining(a, true) {
			if p >= 0 && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Ints(out)
	return out
}
