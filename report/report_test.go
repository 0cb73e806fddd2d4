package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KPoloska/dac-agent/model"
)

func sampleResult() *model.ReviewResult {
	return &model.ReviewResult{
		DACFile:       "in/dac.pdf",
		GeneratedAt:   time.Date(2025, 11, 11, 8, 30, 0, 0, time.UTC),
		OverallStatus: model.StatusPartiallyMet,
		Sections: []model.SectionResult{
			{
				SectionID: "1.1",
				Name:      "General Information",
				Status:    model.StatusMet,
				Checks: []model.CheckResult{{
					CheckID:  "S1.1-01",
					Name:     "CMS Product ID present",
					Status:   model.StatusMet,
					Severity: model.SeverityMajor,
					Evidence: model.Evidence{"value": "1513344"},
				}},
			},
			{
				SectionID: "2.0",
				Name:      "Evidence PDFs",
				Status:    model.StatusPartiallyMet,
				Checks: []model.CheckResult{
					{
						CheckID:  "S2.0-01",
						Name:     "Evidence present: jml.pdf",
						Status:   model.StatusMet,
						Severity: model.SeverityMajor,
						Evidence: model.Evidence{"file": "ev/jml.pdf"},
					},
					{
						CheckID:  "S2.0-01-TXT",
						Name:     "Evidence text extractable: jml.pdf",
						Status:   model.StatusNotMet,
						Severity: model.SeverityMinor,
						Message:  "PDF appears to be scanned; OCR required.",
						Evidence: model.Evidence{"file": "ev/jml.pdf", "ocr_required": true, "ratio": math.NaN()},
					},
				},
			},
		},
		Recommendations: []string{"Provide a text-searchable PDF for jml.pdf."},
		Stats: map[string]any{
			"referenced_xlsx": []string{"a.xlsx", "b.xlsx"},
		},
	}
}

func TestJSONIsSanitizedAndMatchesSchema(t *testing.T) {
	data, err := JSON(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ratio": null`)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""))
	require.NoError(t, ValidateSchema(data))
}

func TestValidateSchemaRejectsBadDocuments(t *testing.T) {
	var doc map[string]any
	data, err := JSON(sampleResult())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	doc["overall_status"] = "DONE"
	bad, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateSchema(bad), ErrSchema)

	delete(doc, "sections")
	doc["overall_status"] = "MET"
	bad, err = json.Marshal(doc)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateSchema(bad), ErrSchema)

	assert.ErrorIs(t, ValidateSchema([]byte("{")), ErrSchema)
}

func TestMarkdownLayout(t *testing.T) {
	md := Markdown(sampleResult())
	assert.True(t, strings.HasPrefix(md, "# DAC Review Result\n"))
	assert.Contains(t, md, "- DAC: `in/dac.pdf`\n")
	assert.Contains(t, md, "- Generated at: `2025-11-11T08:30:00Z`\n")
	assert.Contains(t, md, "- Overall: **PARTIALLY_MET**\n")
	assert.Contains(t, md, "### 2.0 Evidence PDFs: **PARTIALLY_MET**\n")
	assert.Contains(t, md, "- `S2.0-01-TXT` **NOT_MET** (minor) Evidence text extractable: jml.pdf\n")
	assert.Contains(t, md, "  - PDF appears to be scanned; OCR required.\n")
	assert.Contains(t, md, `"ratio":null`)
	assert.Contains(t, md, "## Recommendations\n\n- Provide a text-searchable PDF for jml.pdf.\n")
	assert.Less(t, strings.Index(md, "S1.1-01"), strings.Index(md, "S2.0-01"))
}

func TestMarkdownTruncatesEvidenceAndRecommendations(t *testing.T) {
	r := sampleResult()
	r.Sections[0].Checks[0].Evidence = model.Evidence{"value": strings.Repeat("x", 1000)}
	for i := 0; i < 250; i++ {
		r.Recommendations = append(r.Recommendations, "more")
	}
	md := Markdown(r)
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "  - evidence: `{\"value\":\"xxx") {
			inner := strings.TrimSuffix(strings.TrimPrefix(line, "  - evidence: `"), "`")
			assert.True(t, strings.HasSuffix(inner, "…"))
			assert.Equal(t, maxEvidenceLen+1, len([]rune(inner)))
		}
	}
	recs := strings.Split(md, "## Recommendations\n\n")[1]
	assert.Equal(t, maxRecommendations, strings.Count(recs, "\n- ")+1)
	assert.NotContains(t, Markdown(&model.ReviewResult{}), "## Recommendations")
}

func TestHTMLRendersMarkdown(t *testing.T) {
	page, err := HTML(sampleResult())
	require.NoError(t, err)
	s := string(page)
	assert.Contains(t, s, "<h1>DAC Review Result</h1>")
	assert.Contains(t, s, "<title>DAC Review Result: in/dac.pdf</title>")
	assert.Contains(t, s, "<strong>PARTIALLY_MET</strong>")
}

func TestWriteCreatesAllReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := sampleResult()
	r.Stats["extract_debug_events"] = []map[string]any{{"event": "dac_ocr_result", "ok": true}}

	files, err := Write(dir, r)
	require.NoError(t, err)
	for _, p := range []string{files.JSON, files.Markdown, files.HTML, files.Debug} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size())
	}
	data, err := os.ReadFile(files.JSON)
	require.NoError(t, err)
	require.NoError(t, ValidateSchema(data))

	debug, err := os.ReadFile(files.Debug)
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(debug, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "dac_ocr_result", events[0]["event"])

	delete(r.Stats, "extract_debug_events")
	files, err = Write(t.TempDir(), r)
	require.NoError(t, err)
	assert.Empty(t, files.Debug)
}

func TestRunSummary(t *testing.T) {
	r := sampleResult()
	s := NewRunSummary("in/dac.pdf", "ev", "")
	require.NoError(t, s.Observe(r))
	s.SetEvidenceFiles([]string{"jml.pdf", "a.xlsx"}, "abc")
	s.ExitCode = 2

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, Counts{Sections: 2, Checks: 3, ReferencedXLSX: 2, OCRRequiredPDFs: 1}, s.Counts)
	assert.Equal(t, []string{"jml.pdf"}, s.OCRRequiredFiles)
	assert.Equal(t, []string{"jml.pdf", "a.xlsx"}, s.Inputs.EvidenceFileList)
	assert.Len(t, s.Inputs.SHA256.ReviewResult, 64)

	digest, err := Digest(r)
	require.NoError(t, err)
	assert.Equal(t, digest, s.Inputs.SHA256.ReviewResult)

	dir := t.TempDir()
	path, err := WriteRunSummary(dir, s)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.0", decoded["result_version"])
	assert.Equal(t, path, decoded["output_files"].(map[string]any)["run_summary_json"])

	assert.Equal(t, "OVERALL=PARTIALLY_MET exit=2 sections=2 checks=3 ocr_required=1 out=out", SummaryLine(s, "out"))
	assert.Equal(t, "OVERALL=ERROR exit=4 sections=0 checks=0 ocr_required=0 out=x",
		SummaryLine(&RunSummary{ExitCode: 4}, "x"))
}
