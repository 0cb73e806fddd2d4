package document

import (
	"fmt"
	"image"
)

// MemFile is a File held entirely in memory. It backs tests and callers that
// already have page text from another source.
type MemFile struct {
	Texts  []string
	Images []int
	// Render, when set, produces the raster for a page; otherwise a blank
	// white page is returned.
	Render func(i int, dpi float64) (image.Image, error)
	closed bool
}

func (m *MemFile) PageCount() int { return len(m.Texts) }

func (m *MemFile) PageText(i int) (string, error) {
	if i < 0 || i >= len(m.Texts) {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	return m.Texts[i], nil
}

func (m *MemFile) ImageCount(i int) (int, error) {
	if i < 0 || i >= len(m.Texts) {
		return 0, fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	if i < len(m.Images) {
		return m.Images[i], nil
	}
	return 0, nil
}

func (m *MemFile) RenderPage(i int, dpi float64) (image.Image, error) {
	if i < 0 || i >= len(m.Texts) {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	if m.Render != nil {
		return m.Render(i, dpi)
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for p := range img.Pix {
		img.Pix[p] = 0xff
	}
	return img, nil
}

func (m *MemFile) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemFile) Closed() bool { return m.closed }

// MemProvider serves MemFiles by path.
type MemProvider map[string]*MemFile

func (p MemProvider) Open(path string) (File, error) {
	f, ok := p[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such document", path)
	}
	return f, nil
}
