package scripting

import (
	"context"
)

// Engine runs scripts against a registered document.
type Engine interface {
	// Execute runs script and returns its exported completion value.
	Execute(ctx context.Context, script string) (interface{}, error)

	// Truthy runs script and reports whether its completion value is truthy.
	Truthy(ctx context.Context, script string) (bool, error)

	// RegisterDocument exposes the document text to scripts.
	RegisterDocument(doc TextView) error
}

// TextView is the read-only document surface visible to scripts.
type TextView interface {
	// Text returns the whole document text.
	Text() string
	PageCount() int
	// PageText returns the text of a zero-based page.
	PageText(index int) (string, error)
}

// StaticText is a TextView over a fixed set of page texts.
type StaticText []string

func (s StaticText) Text() string {
	out := ""
	for i, p := range s {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

func (s StaticText) PageCount() int { return len(s) }

func (s StaticText) PageText(index int) (string, error) {
	if index < 0 || index >= len(s) {
		return "", ErrPageOutOfRange
	}
	return s[index], nil
}
