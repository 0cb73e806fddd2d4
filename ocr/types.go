package ocr

import (
	"context"
	"errors"
)

// ErrEngineUnavailable is reported when no usable OCR engine is installed.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Input is one rendered PDF page submitted for recognition, encoded as a
// grayscale TIFF.
type Input struct {
	// ID is echoed back in the corresponding Result.
	ID        string
	Image     []byte
	PageIndex int
	// DPI is the render resolution; zero means unknown.
	DPI int
	// Languages are trained-data names such as "eng" or "deu".
	Languages []string
}

// Result is the recognized text of one Input.
type Result struct {
	InputID   string
	PlainText string
	Language  string
	// Confidence is the mean word confidence in [0, 1], zero when the engine
	// reports none.
	Confidence float64
}

// Engine recognizes one page image at a time.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine handles several pages in one call.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}

// Prober is implemented by engines that can tell ahead of time whether they
// are usable in this process.
type Prober interface {
	Available() error
}

// Availability returns nil when e can be used for recognition.
func Availability(e Engine) error {
	if e == nil {
		return ErrEngineUnavailable
	}
	if p, ok := e.(Prober); ok {
		return p.Available()
	}
	return nil
}
