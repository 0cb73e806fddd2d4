// Package review runs a DAC review. It reads the declaration PDF, resolves
// the evidence directory against a rule set and produces a single
// model.ReviewResult.
package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KPoloska/dac-agent/compliance"
	"github.com/KPoloska/dac-agent/document"
	"github.com/KPoloska/dac-agent/evidence"
	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/observability"
	"github.com/KPoloska/dac-agent/ocr"
	"github.com/KPoloska/dac-agent/rules"
	"github.com/KPoloska/dac-agent/sheet"
)

// Fatal review errors. Everything else is reported inside the result.
var (
	ErrDACNotFound         = errors.New("dac pdf not found")
	ErrDACUnreadable       = errors.New("dac pdf unreadable")
	ErrEvidenceDirNotFound = errors.New("evidence directory not found")
	ErrNoProvider          = errors.New("no document provider configured")
)

// Modes are the two independent leniency switches of a review.
type Modes struct {
	// Lenient turns missing yes/no answers into SKIPPED checks.
	Lenient bool
	// MVP skips optional evidence and applies row tolerances.
	MVP bool
}

// OCRConfig controls OCR of the DAC and of scanned evidence PDFs.
type OCRConfig struct {
	Enabled  bool
	Lang     string
	DPI      int
	MaxPages int
	// Pages forces OCR of these DAC pages even when it has enough text.
	Pages []int
}

func (c OCRConfig) request(pages []int) ocr.Request {
	req := ocr.Request{Lang: c.Lang, DPI: c.DPI, MaxPages: c.MaxPages, Pages: pages}
	if req.Lang == "" {
		req.Lang = ocr.DefaultLang
	}
	if req.DPI <= 0 {
		req.DPI = ocr.DefaultDPI
	}
	if req.MaxPages <= 0 {
		req.MaxPages = ocr.DefaultMaxPages
	}
	return req
}

// Reviewer evaluates DACs. It holds no per-run state and may be reused.
type Reviewer struct {
	provider document.Provider
	sheets   sheet.Reader
	engine   ocr.Engine
	scripts  compliance.ScriptFactory
	logger   observability.Logger
	modes    Modes
	ocr      OCRConfig
	outDir   string
	trace    *extractor.Trace
	now      func() time.Time
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithProvider sets the PDF backend. It is required.
func WithProvider(p document.Provider) Option {
	return func(r *Reviewer) { r.provider = p }
}

// WithSheetReader replaces the excelize spreadsheet reader.
func WithSheetReader(s sheet.Reader) Option {
	return func(r *Reviewer) { r.sheets = s }
}

// WithOCREngine overrides ocr.DefaultEngine().
func WithOCREngine(e ocr.Engine) Option {
	return func(r *Reviewer) { r.engine = e }
}

// WithScriptFactory overrides the engine used for script content rules.
func WithScriptFactory(f compliance.ScriptFactory) Option {
	return func(r *Reviewer) { r.scripts = f }
}

func WithLogger(l observability.Logger) Option {
	return func(r *Reviewer) { r.logger = observability.OrNop(l) }
}

func WithModes(m Modes) Option {
	return func(r *Reviewer) { r.modes = m }
}

func WithOCR(c OCRConfig) Option {
	return func(r *Reviewer) { r.ocr = c }
}

// WithOutDir enables the OCR cache under <dir>/ocr_cache.
func WithOutDir(dir string) Option {
	return func(r *Reviewer) { r.outDir = dir }
}

// WithTrace records extraction events into t and adds them to the result
// stats.
func WithTrace(t *extractor.Trace) Option {
	return func(r *Reviewer) { r.trace = t }
}

// WithClock sets the source of GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Reviewer) { r.now = now }
}

// New returns a Reviewer configured by opts.
func New(opts ...Option) *Reviewer {
	r := &Reviewer{
		sheets: sheet.ExcelReader{},
		logger: observability.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reviewer) ocrRunner() *ocr.Runner {
	runner := &ocr.Runner{Provider: r.provider, Engine: r.engine, Logger: r.logger}
	if r.outDir != "" {
		runner.Cache = &ocr.Cache{Dir: filepath.Join(r.outDir, "ocr_cache")}
	}
	return runner
}

// Review evaluates the DAC at dacPath against the files in evidenceDir.
// Only a missing or unreadable DAC, a missing evidence directory or a
// missing provider produce an error.
func (r *Reviewer) Review(ctx context.Context, dacPath, evidenceDir string, rs rules.RuleSet) (*model.ReviewResult, error) {
	if r.provider == nil {
		return nil, ErrNoProvider
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := r.logger.With(observability.String("dac", filepath.Base(dacPath)))

	base, err := r.loadDAC(dacPath)
	if err != nil {
		log.Error("dac load failed", observability.Error("error", err))
		return nil, err
	}
	if fi, err := os.Stat(evidenceDir); err != nil || !fi.IsDir() {
		log.Error("evidence directory missing", observability.String("dir", evidenceDir))
		return nil, fmt.Errorf("%w: %s", ErrEvidenceDirNotFound, evidenceDir)
	}
	log.Info("review started",
		observability.Int("pages", base.PageCount()),
		observability.Bool("mvp", r.modes.MVP),
		observability.Bool("lenient", r.modes.Lenient),
		observability.Bool("ocr", r.ocr.Enabled))

	rn := &run{
		Reviewer:    r,
		ctx:         ctx,
		log:         log,
		rules:       rs,
		evidenceDir: evidenceDir,
		tables:      map[string]tableResult{},
	}
	rn.doc, rn.dacOCR = rn.dacDocument(dacPath, base)
	rn.text = rn.doc.AllText()
	rn.referenced = evidence.ReferencedSpreadsheets(rn.text)
	if rn.referenced == nil {
		rn.referenced = []string{}
	}

	sections := []model.SectionResult{
		rn.generalInformation(),
		rn.processEvidence(),
		rn.entitlements(),
		rn.itRoles(),
		rn.specialAccounts(),
		rn.segregationOfDuties(),
	}
	for _, s := range sections {
		log.Debug("section evaluated",
			observability.String("section", s.SectionID),
			observability.String("status", string(s.Status)),
			observability.Int("checks", len(s.Checks)))
	}

	files, err := evidence.ListFiles(evidenceDir)
	if err != nil {
		log.Warn("evidence listing failed", observability.Error("error", err))
	}
	if files == nil {
		files = []string{}
	}
	stats := map[string]any{
		"referenced_xlsx":    rn.referenced,
		"evidence_dir_files": files,
		"dac_ocr":            rn.dacOCR,
		"modes": map[string]any{
			"lenient": r.modes.Lenient,
			"mvp":     r.modes.MVP,
			"ocr":     r.ocr.Enabled,
		},
	}
	if r.trace.Enabled() {
		events := r.trace.Events()
		out := make([]map[string]any, len(events))
		for i, e := range events {
			out[i] = map[string]any(e)
		}
		stats["extract_debug_events"] = out
	}

	result := &model.ReviewResult{
		DACFile:         dacPath,
		GeneratedAt:     r.now().UTC(),
		OverallStatus:   compliance.Overall(sections),
		Sections:        sections,
		Recommendations: compliance.Recommendations(sections),
		Stats:           stats,
	}
	log.Info("review finished",
		observability.String("overall", string(result.OverallStatus)),
		observability.Int("checks", result.CountChecks()),
		observability.Int("recommendations", len(result.Recommendations)))
	return result, nil
}

func (r *Reviewer) loadDAC(path string) (*document.Pages, error) {
	f, err := r.provider.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDACNotFound, err)
	}
	defer f.Close()
	pages, err := document.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDACUnreadable, err)
	}
	return pages, nil
}
