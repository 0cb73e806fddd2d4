package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/KPoloska/dac-agent/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestImportInstallsDefaultEngine(t *testing.T) {
	if got := ocr.DefaultEngine().Name(); got != "tesseract" {
		t.Fatalf("default engine = %q", got)
	}
}

func TestMeanConfidence(t *testing.T) {
	boxes := []gosseract.BoundingBox{{Confidence: 90}, {Confidence: 70}}
	if got := meanConfidence(boxes); got != 0.8 {
		t.Fatalf("meanConfidence() = %v, want 0.8", got)
	}
	if got := meanConfidence(nil); got != 0 {
		t.Fatalf("meanConfidence(nil) = %v", got)
	}
}

func TestEngineRecognizesRenderedPage(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 320, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString("SoD relevant yes")

	in, err := ocr.InputFromPage(0, img, ocr.WithLanguages("eng"), ocr.WithDPI(300))
	if err != nil {
		t.Fatalf("InputFromPage() error = %v", err)
	}
	e := NewEngine()
	if err := e.Available(); err != nil {
		t.Skipf("tesseract library unavailable: %v", err)
	}
	results, err := ocr.RecognizeInputs(context.Background(), e, []ocr.Input{in})
	if err != nil {
		t.Fatalf("RecognizeInputs() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := strings.ToLower(results[0].PlainText)
	if !strings.Contains(got, "relevant") {
		t.Fatalf("unexpected OCR output: %q", results[0].PlainText)
	}
	if results[0].Confidence < 0 || results[0].Confidence > 1 {
		t.Fatalf("confidence out of range: %v", results[0].Confidence)
	}
	if results[0].InputID != "page-0" {
		t.Fatalf("unexpected input id: %s", results[0].InputID)
	}
}
