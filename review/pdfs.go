package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/KPoloska/dac-agent/compliance"
	"github.com/KPoloska/dac-agent/document"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/observability"
	"github.com/KPoloska/dac-agent/ocr"
)

const (
	msgPDFMissingMVP  = "MVP: evidence PDF missing; skipping."
	msgPDFMissing     = "Evidence PDF not found in evidence directory."
	msgPDFLowText     = "PDF has very little/no extractable text."
	msgPDFOCRRequired = "OCR required: PDF appears scanned/image-based (no/low extractable text)."
)

// textView adapts a document.Document to scripting.TextView.
type textView struct {
	doc document.Document
}

func (v textView) Text() string   { return v.doc.AllText() }
func (v textView) PageCount() int { return v.doc.PageCount() }

func (v textView) PageText(i int) (string, error) {
	lines, err := v.doc.PageLines(i)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func regularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// processEvidence is section 2.0: presence of every required PDF, then
// per present PDF an extractable-text check and its content rules.
func (rn *run) processEvidence() model.SectionResult {
	required := rn.rules.PDFEvidence.RequiredFiles
	var checks []model.CheckResult
	for i, name := range required {
		id := fmt.Sprintf("S2.0-%02d", i+1)
		title := "Evidence PDF present: " + name
		p := filepath.Join(rn.evidenceDir, name)
		if regularFile(p) {
			checks = append(checks, model.CheckResult{
				CheckID:  id,
				Name:     title,
				Status:   model.StatusMet,
				Severity: model.SeverityMajor,
				Evidence: model.Evidence{"file": p},
			})
			continue
		}
		checks = append(checks, compliance.MissingEvidence(id, title, model.SeverityMajor, rn.modes.MVP,
			msgPDFMissingMVP, msgPDFMissing, model.Evidence{"expected": name}))
	}

	for i, name := range required {
		id := fmt.Sprintf("S2.0-%02d", i+1)
		p := filepath.Join(rn.evidenceDir, name)
		if !regularFile(p) {
			continue
		}
		ok, ev, doc := rn.evidenceText(p)
		c := model.CheckResult{
			CheckID:  id + "-TXT",
			Name:     "Evidence PDF has extractable text: " + name,
			Severity: model.SeverityMajor,
			Evidence: ev,
		}
		if ok {
			c.Status = model.StatusMet
		} else {
			msg := msgPDFLowText
			if ev["ocr_required"] == true {
				msg = msgPDFOCRRequired
			}
			if rn.modes.MVP {
				c.Status = model.StatusMet
				c.Message = "MVP warning: " + msg
			} else {
				c.Status = model.StatusNotMet
				c.Message = msg
			}
		}
		checks = append(checks, c)
		checks = append(checks, compliance.ContentRules(rn.ctx, id, textView{doc}, rn.rules.ContentRulesFor(name), rn.modes.MVP, rn.scripts)...)
	}
	return compliance.AggregateSection("2.0", "Process Evidence (PDFs)", checks)
}

// evidenceText scans an evidence PDF and, when it looks scanned and OCR is
// enabled, OCRs its first pages. It reports whether the PDF carries enough
// text, the evidence bag and the text used for content rules.
func (rn *run) evidenceText(path string) (bool, model.Evidence, document.Document) {
	pdf := rn.rules.PDFEvidence
	info := document.ScanPath(rn.provider, path)
	ev := model.Evidence{
		"file":        path,
		"page_count":  info.PageCount,
		"text_chars":  info.TextChars,
		"image_count": info.ImageCount,
		"ocr_enabled": rn.ocr.Enabled,
	}
	if info.Error != "" {
		ev["error"] = "text_extract_error: " + info.Error
	}
	minChars := max(0, pdf.MinTextChars)
	ok := info.TextChars >= minChars
	scanned := ocr.IsScanned(info.TextChars, pdf.MinTextChars, info.ImageCount, pdf.OCRImageThreshold)
	ev["ocr_required"] = scanned

	base := document.FromTexts(info.Pages...)
	var doc document.Document = base
	if !rn.ocr.Enabled || !scanned {
		ev["ocr_available"] = false
		ev["ocr_attempted"] = false
		return ok, ev, doc
	}

	req := rn.ocr.request(nil)
	req.Pages = ocr.FirstPages(req.MaxPages, info.PageCount)
	pages, m := rn.ocrRunner().RecognizePages(rn.ctx, path, req)
	for k, v := range m.Fields() {
		ev[k] = v
	}
	ocrChars := 0
	for _, t := range pages {
		ocrChars += utf8.RuneCountInString(t)
	}
	ev["text_chars_after_ocr"] = ocrChars
	ev["ocr_succeeded"] = ocrChars > 0 && m.Succeeded
	if ocrChars >= minChars {
		ok = true
	}
	if ocrChars > 0 {
		doc = document.NewOverlay(base, pages)
	}
	rn.log.Info("evidence ocr finished",
		observability.String("file", filepath.Base(path)),
		observability.Int("ocr_text_chars", ocrChars),
		observability.Bool("text_ok", ok))
	return ok, ev, doc
}
