package document

import (
	"fmt"
	"image"
	"strings"
	"unicode/utf8"
)

// Provider opens PDF files. Implementations live in subpackages so the
// native dependency stays out of code that only needs text.
type Provider interface {
	Open(path string) (File, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(path string) (File, error)

func (f ProviderFunc) Open(path string) (File, error) { return f(path) }

// File is an open PDF.
type File interface {
	PageCount() int
	PageText(i int) (string, error)
	// ImageCount returns the number of raster images drawn on page i.
	ImageCount(i int) (int, error)
	// RenderPage rasterizes page i at the given resolution.
	RenderPage(i int, dpi float64) (image.Image, error)
	Close() error
}

// ScanInfo summarizes the text and image content of an evidence PDF.
type ScanInfo struct {
	PageCount  int    `json:"page_count"`
	TextChars  int    `json:"text_chars"`
	ImageCount int    `json:"image_count"`
	Error      string `json:"error,omitempty"`

	// Text and Pages hold the extracted text, used for content rules.
	Text  string   `json:"-"`
	Pages []string `json:"-"`
}

// Scan walks every page of f, counting images and the characters of the
// trimmed document text. Failures on individual pages are recorded in Error
// and do not stop the scan.
func Scan(f File) ScanInfo {
	info := ScanInfo{PageCount: f.PageCount()}
	var (
		texts []string
		errs  []string
	)
	for i := 0; i < info.PageCount; i++ {
		t, err := f.PageText(i)
		if err != nil {
			errs = append(errs, fmt.Sprintf("page %d text: %v", i, err))
		}
		texts = append(texts, t)
		n, err := f.ImageCount(i)
		if err != nil {
			errs = append(errs, fmt.Sprintf("page %d images: %v", i, err))
			continue
		}
		info.ImageCount += n
	}
	info.Pages = texts
	info.Text = strings.Join(texts, "\n")
	info.TextChars = utf8.RuneCountInString(strings.TrimSpace(info.Text))
	if len(errs) > 0 {
		info.Error = strings.Join(errs, "; ")
	}
	return info
}

// ScanPath opens path with p and scans it. An open failure is reported in
// ScanInfo.Error.
func ScanPath(p Provider, path string) ScanInfo {
	f, err := p.Open(path)
	if err != nil {
		return ScanInfo{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()
	return Scan(f)
}
