// Package tesseract registers a gosseract-backed OCR engine as the default
// engine when imported.
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/KPoloska/dac-agent/ocr"
)

func init() {
	ocr.SetDefaultEngine(NewEngine())
}

// Engine recognizes DAC and evidence pages with libtesseract.
type Engine struct {
	newClient func() *gosseract.Client

	probeOnce sync.Once
	probeErr  error
}

// NewEngine returns an engine that opens one tesseract client per batch.
func NewEngine() *Engine {
	return &Engine{newClient: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Available reports whether libtesseract answers with a version string.
func (e *Engine) Available() error {
	e.probeOnce.Do(func() {
		c := e.newClient()
		defer c.Close()
		if strings.TrimSpace(c.Version()) == "" {
			e.probeErr = fmt.Errorf("%w: tesseract returned no version", ocr.ErrEngineUnavailable)
		}
	})
	return e.probeErr
}

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	return page(ctx, c, in)
}

// RecognizeBatch reuses one client for every page. Pages are independent:
// language and resolution are set again for each one.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := page(ctx, c, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func page(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	dpi := in.DPI
	if dpi <= 0 {
		dpi = ocr.DefaultDPI
	}
	if err := c.SetVariable("user_defined_dpi", strconv.Itoa(dpi)); err != nil {
		return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return ocr.Result{}, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	res := ocr.Result{InputID: in.ID, PlainText: strings.TrimSpace(text)}
	if len(in.Languages) > 0 {
		res.Language = in.Languages[0]
	}
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		res.Confidence = meanConfidence(boxes)
	}
	return res, nil
}

// meanConfidence averages tesseract's 0..100 word confidences into [0, 1].
func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}
