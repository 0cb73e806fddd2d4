// Command dacreview audits a DAC PDF against the evidence files that
// accompany it and writes JSON, Markdown and HTML reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KPoloska/dac-agent/document"
	"github.com/KPoloska/dac-agent/document/fitz"
	"github.com/KPoloska/dac-agent/evidence"
	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/observability"
	"github.com/KPoloska/dac-agent/ocr"
	_ "github.com/KPoloska/dac-agent/ocr/tesseract"
	"github.com/KPoloska/dac-agent/report"
	"github.com/KPoloska/dac-agent/review"
	"github.com/KPoloska/dac-agent/rules"
)

// Process exit codes.
const (
	exitMet          = 0
	exitPartiallyMet = 2
	exitNotMet       = 3
	exitError        = 4
)

const runLogName = "run.log"

var newProvider = func() document.Provider { return fitz.New() }

type options struct {
	dacPath      string
	evidenceDir  string
	outDir       string
	rulesPath    string
	lenient      bool
	mvp          bool
	print        bool
	schemaOff    bool
	debugExtract bool
	logLevel     string
	ocr          review.OCRConfig
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dacreview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: dacreview -dac <pdf> -evidence-dir <dir> [flags]\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.dacPath, "dac", "", "Path to the DAC PDF")
	fs.StringVar(&opts.evidenceDir, "evidence-dir", "", "Directory holding the evidence files")
	fs.StringVar(&opts.outDir, "out", "out", "Directory for reports and the run log")
	fs.StringVar(&opts.rulesPath, "rules", "", "YAML rule file (built-in defaults when empty)")
	fs.BoolVar(&opts.lenient, "lenient", false, "Accept missing yes/no answers with a warning")
	fs.BoolVar(&opts.mvp, "mvp", false, "Downgrade missing evidence to SKIPPED")
	fs.BoolVar(&opts.print, "print", false, "Print the Markdown report to stdout")
	fs.BoolVar(&opts.schemaOff, "schema-off", false, "Skip JSON schema validation of the result")
	fs.BoolVar(&opts.ocr.Enabled, "ocr", false, "OCR scanned DAC pages and evidence PDFs")
	fs.StringVar(&opts.ocr.Lang, "ocr-lang", ocr.DefaultLang, "Tesseract language(s), e.g. eng or eng+deu")
	fs.IntVar(&opts.ocr.DPI, "ocr-dpi", ocr.DefaultDPI, "Render resolution for OCR")
	fs.IntVar(&opts.ocr.MaxPages, "ocr-max-pages", ocr.DefaultMaxPages, "Maximum pages to OCR per document")
	pages := fs.String("ocr-pages", "", "Comma separated zero-based DAC pages to always OCR")
	fs.BoolVar(&opts.debugExtract, "debug-extract", false, "Write extract_debug.json with extraction events")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.dacPath == "" || opts.evidenceDir == "" {
		fs.Usage()
		return options{}, errors.New("-dac and -evidence-dir are required")
	}
	list, err := parsePages(*pages)
	if err != nil {
		return options{}, err
	}
	opts.ocr.Pages = list
	return opts, nil
}

func parsePages(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid -ocr-pages entry %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func exitCode(s model.Status) int {
	switch s {
	case model.StatusMet:
		return exitMet
	case model.StatusPartiallyMet:
		return exitPartiallyMet
	case model.StatusNotMet:
		return exitNotMet
	}
	return exitError
}

func checkInputs(opts options) error {
	if fi, err := os.Stat(opts.dacPath); err != nil || fi.IsDir() {
		return fmt.Errorf("DAC not found: %s", opts.dacPath)
	}
	if fi, err := os.Stat(opts.evidenceDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("evidence dir not found: %s", opts.evidenceDir)
	}
	if opts.rulesPath != "" {
		if fi, err := os.Stat(opts.rulesPath); err != nil || fi.IsDir() {
			return fmt.Errorf("rules file not found: %s", opts.rulesPath)
		}
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "dacreview: %v\n", err)
		return exitError
	}
	if err := checkInputs(opts); err != nil {
		fmt.Fprintf(stderr, "dacreview: %v\n", err)
		return exitError
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "dacreview: create output dir: %v\n", err)
		return exitError
	}
	logPath := filepath.Join(opts.outDir, runLogName)
	log, closer, err := observability.NewRunLogger(observability.Options{
		Level:  opts.logLevel,
		File:   logPath,
		Output: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "dacreview: %v\n", err)
		return exitError
	}
	defer closer.Close()

	start := time.Now()
	summary := report.NewRunSummary(opts.dacPath, opts.evidenceDir, opts.rulesPath)
	summary.Flags = report.Flags{MVP: opts.mvp, Lenient: opts.lenient, SchemaValidate: !opts.schemaOff}
	summary.OCR = opts.ocr.Enabled
	summary.OCRLang = opts.ocr.Lang
	summary.OCRDPI = opts.ocr.DPI
	summary.OCRMaxPages = opts.ocr.MaxPages
	summary.OutputFiles.RunLog = logPath

	code, err := execute(opts, summary, log, stdout)
	summary.TimingsSec["total"] = time.Since(start).Seconds()
	if err != nil {
		log.Error("run failed", observability.Error("error", err))
		fmt.Fprintf(stderr, "dacreview: %v\n", err)
		summary.Error = err.Error()
		code = exitError
	}
	summary.ExitCode = code
	if _, err := report.WriteRunSummary(opts.outDir, summary); err != nil {
		log.Error("run summary not written", observability.Error("error", err))
		code = exitError
		summary.ExitCode = code
	}
	fmt.Fprintln(stdout, report.SummaryLine(summary, opts.outDir))
	return code
}

func execute(opts options, summary *report.RunSummary, log observability.Logger, stdout io.Writer) (int, error) {
	rs, err := rules.Load(opts.rulesPath)
	if err != nil {
		return exitError, err
	}
	if summary.Inputs.SHA256.DACPDF, err = evidence.FileDigest(opts.dacPath); err != nil {
		return exitError, err
	}
	if opts.rulesPath != "" {
		if summary.Inputs.SHA256.RulesYAML, err = evidence.FileDigest(opts.rulesPath); err != nil {
			return exitError, err
		}
	}
	names, digest, err := evidence.FileListDigest(opts.evidenceDir)
	if err != nil {
		return exitError, err
	}
	summary.SetEvidenceFiles(names, digest)

	var trace *extractor.Trace
	if opts.debugExtract {
		trace = extractor.NewTrace()
	}
	reviewer := review.New(
		review.WithProvider(newProvider()),
		review.WithLogger(log),
		review.WithModes(review.Modes{Lenient: opts.lenient, MVP: opts.mvp}),
		review.WithOCR(opts.ocr),
		review.WithOutDir(opts.outDir),
		review.WithTrace(trace),
	)
	log.Info("review started",
		observability.String("dac", opts.dacPath),
		observability.String("evidence_dir", opts.evidenceDir),
		observability.Bool("mvp", opts.mvp),
		observability.Bool("lenient", opts.lenient),
		observability.Bool("ocr", opts.ocr.Enabled))

	result, err := reviewer.Review(context.Background(), opts.dacPath, opts.evidenceDir, rs)
	if err != nil {
		return exitError, err
	}
	if err := summary.Observe(result); err != nil {
		return exitError, err
	}
	files, err := report.Write(opts.outDir, result)
	if err != nil {
		return exitError, err
	}
	summary.OutputFiles.ReviewResultJSON = files.JSON
	summary.OutputFiles.ReviewResultMD = files.Markdown
	summary.OutputFiles.ReviewResultHTML = files.HTML
	summary.OutputFiles.ExtractDebugJSON = files.Debug

	code := exitCode(result.OverallStatus)
	if !opts.schemaOff {
		data, err := os.ReadFile(files.JSON)
		if err == nil {
			err = report.ValidateSchema(data)
		}
		summary.Schema.Validated = err == nil
		if err != nil {
			summary.Schema.Error = err.Error()
			log.Error("schema validation failed", observability.Error("error", err))
			code = exitError
		}
	}
	if opts.print {
		fmt.Fprint(stdout, report.Markdown(result))
	}
	log.Info("review finished",
		observability.String("overall", string(result.OverallStatus)),
		observability.Int("checks", result.CountChecks()),
		observability.Int("exit", code))
	return code, nil
}
