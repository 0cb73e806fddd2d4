package review

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KPoloska/dac-agent/compliance"
	"github.com/KPoloska/dac-agent/document"
	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/observability"
	"github.com/KPoloska/dac-agent/ocr"
	"github.com/KPoloska/dac-agent/rules"
	"github.com/KPoloska/dac-agent/sheet"
)

// dacAnchors are the phrases whose pages are OCRed first.
var dacAnchors = []string{
	"CMS Product ID",
	"IT Asset ID",
	"IT Asset Name",
	"Application is",
	"SoD relevant",
	"Functional Area",
	"upload the entitlement",
	"Is Application a",
	"critical and",
	"important function",
}

type tableResult struct {
	table *sheet.Table
	err   error
}

// run is the state of a single Review call.
type run struct {
	*Reviewer
	ctx         context.Context
	log         observability.Logger
	rules       rules.RuleSet
	evidenceDir string

	doc        document.Document
	text       string
	referenced []string
	dacOCR     map[string]any

	sod    extractor.Answer
	tables map[string]tableResult
}

// dacDocument returns the text view used for extraction. When OCR applies,
// recognized text replaces the pages that had no native text.
func (rn *run) dacDocument(path string, base *document.Pages) (document.Document, map[string]any) {
	cfg := rn.ocr
	baseChars := utf8.RuneCountInString(strings.TrimSpace(base.AllText()))
	meta := map[string]any{
		"ocr_enabled":          cfg.Enabled,
		"ocr_attempted":        false,
		"ocr_succeeded":        false,
		"base_text_chars":      baseChars,
		"text_chars_after_ocr": baseChars,
		"ocr_pages_requested":  intsOrNil(cfg.Pages),
	}
	if !ocr.ShouldOCRDocument(cfg.Enabled, baseChars, rn.rules.PDFEvidence.MinTextChars, cfg.Pages) {
		return base, meta
	}

	req := cfg.request(nil)
	sel := ocr.SelectPages(base, dacAnchors, req.MaxPages, cfg.Pages)
	rn.trace.Record("dac_ocr_pages_source",
		"source", sel.Source,
		"candidates", sel.Candidates,
		"pages", sel.Pages)
	req.Pages = sel.Pages

	pages, m := rn.ocrRunner().RecognizePages(rn.ctx, path, req)
	for k, v := range m.Fields() {
		meta[k] = v
	}
	ocrChars := 0
	for _, t := range pages {
		ocrChars += utf8.RuneCountInString(t)
	}
	used := make([]int, 0, len(pages))
	for p := range pages {
		used = append(used, p)
	}
	sort.Ints(used)
	meta["ocr_attempted"] = true
	meta["ocr_succeeded"] = ocrChars > 0 && m.Succeeded
	meta["text_chars_after_ocr"] = baseChars + ocrChars
	meta["ocr_pages_used"] = used
	rn.trace.Record("dac_ocr_result",
		"base_chars", baseChars,
		"ocr_text_chars", ocrChars,
		"pages_used", used)
	rn.log.Info("dac ocr finished",
		observability.Ints("pages", used),
		observability.Int("ocr_text_chars", ocrChars))

	if len(pages) > 0 && ocrChars > 0 {
		return document.NewOverlay(base, pages), meta
	}
	return base, meta
}

func intsOrNil(v []int) any {
	if len(v) == 0 {
		return nil
	}
	return append([]int{}, v...)
}

// generalInformation is section 1.1.
func (rn *run) generalInformation() model.SectionResult {
	fields := []struct {
		id, name, key string
		labels        []string
		typed         func(string) string
	}{
		{"S1.1-01", "CMS Product ID present", "cms_id", []string{"CMS Product ID"}, extractor.CMSProductID},
		{"S1.1-02", "IT Asset ID present", "it_asset_id", []string{"IT Asset ID", "IT Asset ID:"}, extractor.ITAssetID},
		{"S1.1-03", "IT Asset Name present", "it_asset_name", []string{"IT Asset Name", "IT Asset Name:"}, extractor.ITAssetName},
	}
	checks := make([]model.CheckResult, 0, len(fields))
	values := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		hit := extractor.Resolve(rn.doc,
			extractor.PageLabels{Labels: f.labels},
			extractor.Typed{Extract: f.typed},
			extractor.TextLabels{Labels: f.labels},
		)
		if hit.Strategy != extractor.MethodPageLines {
			rn.trace.Record("extract_fallback_value",
				"field", f.key,
				"value", hit.Value,
				"method", hit.Strategy)
		}
		values = append(values, f.key, hit.Value)
		checks = append(checks, compliance.Presence(f.id, f.name, model.SeverityMajor, hit.Value))
	}
	rn.trace.Record("extract_1.1_values", values...)
	return compliance.AggregateSection("1.1", "General Information", checks)
}
