package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/KPoloska/dac-agent/model"
)

// ResultVersion is the version of the run summary format.
const ResultVersion = "1.0"

// Flags records the mode switches a run was started with.
type Flags struct {
	MVP            bool `json:"mvp"`
	Lenient        bool `json:"lenient"`
	SchemaValidate bool `json:"schema_validate"`
}

// Counts are headline numbers taken from the review result.
type Counts struct {
	Sections        int `json:"sections"`
	Checks          int `json:"checks"`
	ReferencedXLSX  int `json:"referenced_xlsx"`
	OCRRequiredPDFs int `json:"ocr_required_pdfs"`
}

// Digests holds hex sha256 digests of the run inputs and of the result.
type Digests struct {
	DACPDF           string `json:"dac_pdf,omitempty"`
	RulesYAML        string `json:"rules_yaml,omitempty"`
	EvidenceFileList string `json:"evidence_file_list"`
	ReviewResult     string `json:"review_result,omitempty"`
}

// Inputs describes what a run read.
type Inputs struct {
	SHA256           Digests  `json:"sha256"`
	EvidenceFileList []string `json:"evidence_file_list"`
}

// SchemaOutcome records whether the result JSON was validated.
type SchemaOutcome struct {
	Validated bool   `json:"validated"`
	Error     string `json:"error,omitempty"`
}

// OutputFiles lists the artifacts of a run.
type OutputFiles struct {
	ReviewResultJSON string `json:"review_result_json,omitempty"`
	ReviewResultMD   string `json:"review_result_md,omitempty"`
	ReviewResultHTML string `json:"review_result_html,omitempty"`
	ExtractDebugJSON string `json:"extract_debug_json,omitempty"`
	RunSummaryJSON   string `json:"run_summary_json"`
	RunLog           string `json:"run_log,omitempty"`
}

// RunSummary is the machine-readable record written next to the reports.
type RunSummary struct {
	RunID            string             `json:"run_id"`
	ResultVersion    string             `json:"result_version"`
	DACFile          string             `json:"dac_file"`
	EvidenceDir      string             `json:"evidence_dir"`
	RulesPath        string             `json:"rules_path,omitempty"`
	OverallStatus    model.Status       `json:"overall_status,omitempty"`
	ExitCode         int                `json:"exit_code"`
	Flags            Flags              `json:"flags"`
	TimingsSec       map[string]float64 `json:"timings_sec"`
	Counts           Counts             `json:"counts"`
	OCRRequiredFiles []string           `json:"ocr_required_files"`
	OCR              bool               `json:"ocr"`
	OCRLang          string             `json:"ocr_lang,omitempty"`
	OCRMaxPages      int                `json:"ocr_max_pages,omitempty"`
	OCRDPI           int                `json:"ocr_dpi,omitempty"`
	Inputs           Inputs             `json:"inputs"`
	Schema           SchemaOutcome      `json:"schema"`
	OutputFiles      OutputFiles        `json:"output_files"`
	Error            string             `json:"error,omitempty"`
}

// NewRunSummary returns a summary with a fresh run id and empty collections.
func NewRunSummary(dacFile, evidenceDir, rulesPath string) *RunSummary {
	return &RunSummary{
		RunID:            uuid.NewString(),
		ResultVersion:    ResultVersion,
		DACFile:          dacFile,
		EvidenceDir:      evidenceDir,
		RulesPath:        rulesPath,
		TimingsSec:       map[string]float64{},
		OCRRequiredFiles: []string{},
		Inputs:           Inputs{EvidenceFileList: []string{}},
	}
}

// Observe fills the counts, OCR file list and result digest from r.
func (s *RunSummary) Observe(r *model.ReviewResult) error {
	s.OverallStatus = r.OverallStatus
	s.OCRRequiredFiles = OCRRequiredFiles(r)
	s.Counts = Counts{
		Sections:        len(r.Sections),
		Checks:          r.CountChecks(),
		ReferencedXLSX:  lenOf(r.Stats["referenced_xlsx"]),
		OCRRequiredPDFs: len(s.OCRRequiredFiles),
	}
	digest, err := Digest(r)
	if err != nil {
		return err
	}
	s.Inputs.SHA256.ReviewResult = digest
	return nil
}

// SetEvidenceFiles records the evidence file names and their list digest.
func (s *RunSummary) SetEvidenceFiles(names []string, digest string) {
	s.Inputs.EvidenceFileList = append([]string{}, names...)
	s.Inputs.SHA256.EvidenceFileList = digest
}

func lenOf(v any) int {
	switch x := v.(type) {
	case []string:
		return len(x)
	case []any:
		return len(x)
	}
	return 0
}

// OCRRequiredFiles returns the sorted base names of evidence files whose
// check evidence marks them as needing OCR.
func OCRRequiredFiles(r *model.ReviewResult) []string {
	seen := map[string]bool{}
	r.Checks(func(_ model.SectionResult, c model.CheckResult) bool {
		if required, _ := c.Evidence["ocr_required"].(bool); !required {
			return true
		}
		if file, _ := c.Evidence["file"].(string); file != "" {
			seen[filepath.Base(file)] = true
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Digest returns the hex sha256 of the canonical JSON form of r.
func Digest(r *model.ReviewResult) (string, error) {
	data, err := model.Canonical(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteRunSummary writes s to dir/run_summary.json and returns the path.
func WriteRunSummary(dir string, s *RunSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileRunSummary)
	s.OutputFiles.RunSummaryJSON = path
	var buf bytes.Buffer
	if err := encodeIndented(&buf, s); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", FileRunSummary, err)
	}
	return path, nil
}

// SummaryLine is the single line printed for CI logs.
func SummaryLine(s *RunSummary, outDir string) string {
	status := string(s.OverallStatus)
	if status == "" {
		status = "ERROR"
	}
	return fmt.Sprintf("OVERALL=%s exit=%d sections=%d checks=%d ocr_required=%d out=%s",
		status, s.ExitCode, s.Counts.Sections, s.Counts.Checks, s.Counts.OCRRequiredPDFs, outDir)
}
