// Package fitz implements document.Provider on top of MuPDF.
package fitz

import (
	"fmt"
	"image"
	"strings"

	gofitz "github.com/gen2brain/go-fitz"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/KPoloska/dac-agent/document"
)

// Provider opens PDFs with MuPDF.
type Provider struct{}

// New returns a MuPDF-backed provider.
func New() Provider { return Provider{} }

func (Provider) Open(path string) (document.File, error) {
	doc, err := gofitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &file{doc: doc}, nil
}

type file struct {
	doc *gofitz.Document
}

func (f *file) PageCount() int { return f.doc.NumPage() }

func (f *file) check(i int) error {
	if i < 0 || i >= f.doc.NumPage() {
		return fmt.Errorf("%w: %d", document.ErrPageOutOfRange, i)
	}
	return nil
}

func (f *file) PageText(i int) (string, error) {
	if err := f.check(i); err != nil {
		return "", err
	}
	return f.doc.Text(i)
}

// ImageCount renders page i to MuPDF's HTML output and counts the embedded
// <img> elements.
func (f *file) ImageCount(i int) (int, error) {
	if err := f.check(i); err != nil {
		return 0, err
	}
	markup, err := f.doc.HTML(i, false)
	if err != nil {
		return 0, fmt.Errorf("page %d html: %w", i, err)
	}
	return CountImages(markup), nil
}

func (f *file) RenderPage(i int, dpi float64) (image.Image, error) {
	if err := f.check(i); err != nil {
		return nil, err
	}
	img, err := f.doc.ImageDPI(i, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", i, err)
	}
	return img, nil
}

func (f *file) Close() error { return f.doc.Close() }

// CountImages returns the number of img elements in an HTML fragment.
func CountImages(markup string) int {
	z := html.NewTokenizer(strings.NewReader(markup))
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Img {
				n++
			}
		}
	}
}
