package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KPoloska/dac-agent/document"
	"github.com/KPoloska/dac-agent/observability"
)

// Defaults applied by Runner when a Request leaves a field unset.
const (
	DefaultLang     = "eng"
	DefaultDPI      = 200
	DefaultMaxPages = 2
)

// Meta describes what an OCR pass did. It is attached to check evidence
// and run statistics, so every outcome is recorded here instead of being
// returned as an error.
type Meta struct {
	Enabled        bool   `json:"ocr_enabled"`
	Available      bool   `json:"ocr_available"`
	Attempted      bool   `json:"ocr_attempted"`
	Succeeded      bool   `json:"ocr_succeeded"`
	CacheHit       bool   `json:"ocr_cache_hit"`
	Lang           string `json:"ocr_lang"`
	DPI            int    `json:"ocr_dpi"`
	Pages          int    `json:"ocr_pages"`
	PagesRequested []int  `json:"ocr_pages_requested"`
	PagesUsed      []int  `json:"ocr_pages_used"`
	TextChars      int    `json:"ocr_text_chars"`
	Engine         string `json:"ocr_engine,omitempty"`
	Error          string `json:"error,omitempty"`
	// Confidence is the mean engine confidence over recognized pages.
	Confidence float64 `json:"ocr_confidence,omitempty"`
}

// Fields returns m as an evidence bag.
func (m Meta) Fields() map[string]any {
	out := map[string]any{
		"ocr_enabled":         m.Enabled,
		"ocr_available":       m.Available,
		"ocr_attempted":       m.Attempted,
		"ocr_succeeded":       m.Succeeded,
		"ocr_cache_hit":       m.CacheHit,
		"ocr_lang":            m.Lang,
		"ocr_dpi":             m.DPI,
		"ocr_pages":           m.Pages,
		"ocr_pages_requested": intsOrNil(m.PagesRequested),
		"ocr_pages_used":      intsOrNil(m.PagesUsed),
		"ocr_text_chars":      m.TextChars,
	}
	if m.Engine != "" {
		out["ocr_engine"] = m.Engine
	}
	if m.Confidence > 0 {
		out["ocr_confidence"] = m.Confidence
	}
	if m.Error != "" {
		out["error"] = m.Error
	}
	return out
}

func intsOrNil(v []int) any {
	if v == nil {
		return nil
	}
	return append([]int{}, v...)
}

// Runner performs cached, best-effort OCR over PDF pages.
type Runner struct {
	Provider document.Provider
	// Engine defaults to DefaultEngine().
	Engine Engine
	// Cache is consulted before and filled after recognition when non-nil.
	Cache  *Cache
	Logger observability.Logger
}

func (r *Runner) engine() Engine {
	if r.Engine != nil {
		return r.Engine
	}
	return DefaultEngine()
}

// RecognizePages OCRs the requested pages of the PDF at path and returns the
// recognized text keyed by page index. It never fails: problems are recorded
// in Meta and yield an empty or partial page map.
func (r *Runner) RecognizePages(ctx context.Context, path string, req Request) (map[int]string, Meta) {
	log := observability.OrNop(r.Logger).With(observability.String("file", filepath.Base(path)))
	if req.Lang == "" {
		req.Lang = DefaultLang
	}
	if req.DPI <= 0 {
		req.DPI = DefaultDPI
	}
	if req.MaxPages <= 0 {
		req.MaxPages = DefaultMaxPages
	}
	meta := Meta{Enabled: true, Lang: req.Lang, DPI: req.DPI, PagesRequested: req.Pages}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		data = []byte(path)
	}
	key := CacheKey(data, req)

	if r.Cache != nil {
		pages, ok, err := r.Cache.Load(stem, key)
		switch {
		case err != nil:
			log.Warn("ocr cache unreadable", observability.Error("error", err))
		case ok:
			meta.CacheHit = true
			meta.Available = true
			meta.Attempted = true
			meta.Pages = len(pages)
			meta.PagesUsed = sortedKeys(pages)
			meta.TextChars = countChars(pages)
			meta.Succeeded = meta.TextChars > 0
			log.Info("ocr cache hit", observability.String("key", key))
			return pages, meta
		}
	}

	engine := r.engine()
	meta.Engine = engine.Name()
	meta.Attempted = true
	if err := Availability(engine); err != nil {
		meta.Error = fmt.Sprintf("ocr_unavailable: %v", err)
		log.Warn("ocr engine unavailable", observability.Error("error", err))
		return map[int]string{}, meta
	}
	meta.Available = true

	if r.Provider == nil {
		meta.Error = "ocr_error: no document provider"
		return map[int]string{}, meta
	}
	f, err := r.Provider.Open(path)
	if err != nil {
		meta.Error = fmt.Sprintf("ocr_error: %v", err)
		log.Warn("ocr open failed", observability.Error("error", err))
		return map[int]string{}, meta
	}
	defer f.Close()

	total := f.PageCount()
	var target []int
	if len(req.Pages) > 0 {
		for _, p := range req.Pages {
			if p >= 0 && p < total {
				target = append(target, p)
			}
		}
	} else {
		target = FirstPages(req.MaxPages, total)
	}
	if target == nil {
		target = []int{}
	}
	meta.Pages = len(target)
	meta.PagesUsed = target

	pages := make(map[int]string, len(target))
	inputs := make([]Input, 0, len(target))
	for _, p := range target {
		pages[p] = ""
		if err := ctx.Err(); err != nil {
			meta.Error = fmt.Sprintf("ocr_error: %v", err)
			return pages, meta
		}
		img, err := f.RenderPage(p, float64(req.DPI))
		if err != nil {
			log.Warn("ocr render failed", observability.Int("page", p), observability.Error("error", err))
			continue
		}
		in, err := InputFromPage(p, img, WithLanguages(req.Lang), WithDPI(req.DPI))
		if err != nil {
			log.Warn("ocr input failed", observability.Int("page", p), observability.Error("error", err))
			continue
		}
		inputs = append(inputs, in)
	}
	meta.Confidence = r.recognize(ctx, engine, inputs, pages, log)

	meta.TextChars = countChars(pages)
	meta.Succeeded = meta.TextChars > 0
	log.Info("ocr finished",
		observability.Ints("pages", target),
		observability.Int("text_chars", meta.TextChars))

	if r.Cache != nil {
		if err := r.Cache.Store(stem, key, pages); err != nil {
			log.Warn("ocr cache write failed", observability.Error("error", err))
		} else {
			log.Info("ocr cache write", observability.String("key", key))
		}
	}
	return pages, meta
}

// recognize fills pages from inputs and returns the mean confidence of the
// recognized pages. A batch failure falls back to one call per input so a
// single bad page only loses its own text.
func (r *Runner) recognize(ctx context.Context, engine Engine, inputs []Input, pages map[int]string, log observability.Logger) float64 {
	if len(inputs) == 0 {
		return 0
	}
	var results []Result
	if _, ok := engine.(BatchEngine); ok {
		batch, err := RecognizeInputs(ctx, engine, inputs)
		if err == nil && len(batch) == len(inputs) {
			for i := range batch {
				batch[i].InputID = inputs[i].ID
			}
			results = batch
		} else {
			log.Warn("ocr batch failed, retrying per page", observability.Error("error", err))
		}
	}
	if results == nil {
		for _, in := range inputs {
			res, err := engine.Recognize(ctx, in)
			if err != nil {
				log.Warn("ocr page failed", observability.Int("page", in.PageIndex), observability.Error("error", err))
				continue
			}
			res.InputID = in.ID
			results = append(results, res)
		}
	}
	byID := make(map[string]int, len(inputs))
	for _, in := range inputs {
		byID[in.ID] = in.PageIndex
	}
	var sum float64
	for _, res := range results {
		pages[byID[res.InputID]] = res.PlainText
		sum += res.Confidence
	}
	if len(results) == 0 {
		return 0
	}
	return sum / float64(len(results))
}

func sortedKeys(m map[int]string) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func countChars(pages map[int]string) int {
	n := 0
	for _, t := range pages {
		n += utf8.RuneCountInString(t)
	}
	return n
}
