package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// InputOption adjusts an Input built by InputFromPage.
type InputOption func(*Input)

// WithLanguages sets the recognition languages. A Tesseract style "eng+deu"
// entry is split into its parts.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) {
		in.Languages = in.Languages[:0]
		for _, l := range langs {
			for _, part := range strings.Split(l, "+") {
				if part = strings.TrimSpace(part); part != "" {
					in.Languages = append(in.Languages, part)
				}
			}
		}
	}
}

// WithDPI records the render resolution.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// InputFromPage converts a rendered page into a grayscale, deflate-compressed
// TIFF input. The ID is derived from the page index.
func InputFromPage(page int, img image.Image, opts ...InputOption) (Input, error) {
	if img == nil {
		return Input{}, fmt.Errorf("page %d: nil image", page)
	}
	b := img.Bounds()
	if b.Empty() {
		return Input{}, fmt.Errorf("page %d: empty image", page)
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(gray, image.Point{}, img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, gray, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return Input{}, fmt.Errorf("page %d: encode tiff: %w", page, err)
	}
	in := Input{
		ID:        fmt.Sprintf("page-%d", page),
		Image:     buf.Bytes(),
		PageIndex: page,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
