package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KPoloska/dac-agent/model"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 200, rs.PDFEvidence.MinTextChars)
	assert.Equal(t, 1, rs.PDFEvidence.OCRImageThreshold)
	assert.Equal(t, 0.10, rs.EntitlementsRequired.RatioTolerance)
	assert.Equal(t, 50, rs.EntitlementsRequired.AbsTolerance)
	assert.Equal(t, 0.01, rs.ITRolesDescriptions.RatioTolerance)
	assert.Equal(t, 5, rs.ITRolesDescriptions.AbsTolerance)
	assert.Equal(t, model.SeverityMajor, rs.ITRolesRequired.Severity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadShippedConfig(t *testing.T) {
	rs, err := Load(filepath.Join("..", "config", "rules.yaml"))
	require.NoError(t, err)
	assert.Len(t, rs.PDFEvidence.RequiredFiles, 2)
	cr := rs.ContentRulesFor("Recertification Evidence.pdf")
	require.Len(t, cr, 1)
	assert.Equal(t, TypeScript, cr[0].Type)
	assert.Equal(t, model.SeverityCritical, rs.EntitlementsRequired.SeverityFor(false))
	assert.Equal(t, model.SeverityMajor, rs.EntitlementsRequired.SeverityFor(true))
}

func TestParseAppliesDefaultsPerKey(t *testing.T) {
	rs, err := Parse([]byte(`
pdf_evidence:
  required_files: [a.pdf]
  content_rules:
    a.pdf:
      - id: R1
        pattern: 'foo'
      - id: ""
        pattern: 'dropped'
      - id: R2
        type: CONTAINS
        contains: bar
        severity: minor
excel_thresholds:
  itroles_required:
    abs_tol: 7
`))
	require.NoError(t, err)
	assert.Equal(t, 200, rs.PDFEvidence.MinTextChars)
	list := rs.ContentRulesFor("a.pdf")
	require.Len(t, list, 2)
	assert.Equal(t, ContentRule{ID: "R1", Name: "R1", Type: TypeRegex, Pattern: "foo", Severity: model.SeverityMajor}, list[0])
	assert.Equal(t, TypeContains, list[1].Type)
	assert.Equal(t, model.SeverityMinor, list[1].Severity)
	assert.Equal(t, 7, rs.ITRolesRequired.AbsTolerance)
	assert.Equal(t, 0.01, rs.ITRolesRequired.RatioTolerance)
}

func TestParseZeroMinTextCharsUsesDefault(t *testing.T) {
	rs, err := Parse([]byte("pdf_evidence: {min_text_chars: 0}\n"))
	require.NoError(t, err)
	assert.Equal(t, Default().PDFEvidence.MinTextChars, rs.PDFEvidence.MinTextChars)

	rs, err = Parse([]byte("pdf_evidence: {min_text_chars: 50}\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, rs.PDFEvidence.MinTextChars)
}

func TestParseKeepsMalformedRegex(t *testing.T) {
	rs, err := Parse([]byte(`
pdf_evidence:
  content_rules:
    a.pdf:
      - id: BAD
        pattern: '(unclosed'
`))
	require.NoError(t, err)
	assert.Equal(t, "(unclosed", rs.ContentRulesFor("a.pdf")[0].Pattern)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown type": `
pdf_evidence:
  content_rules:
    a.pdf:
      - {id: X, type: xpath}
`,
		"unknown severity": `
pdf_evidence:
  content_rules:
    a.pdf:
      - {id: X, severity: blocker}
`,
		"duplicate id": `
pdf_evidence:
  content_rules:
    a.pdf:
      - {id: X}
      - {id: X}
`,
		"negative tolerance": `
excel_thresholds:
  entitlements_required: {abs_tol: -1}
`,
		"negative min chars": `
pdf_evidence: {min_text_chars: -5}
`,
		"nan ratio": `
excel_thresholds:
  itroles_required: {ratio_tol: .nan}
`,
		"infinite ratio": `
excel_thresholds:
  entitlements_descriptions: {ratio_tol: .inf}
`,
		"negative infinite ratio": `
excel_thresholds:
  entitlements_required: {ratio_tol: -.inf}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("pdf_evidence: [unterminated"))
	require.Error(t, err)
}

func TestContentRulesForReturnsCopy(t *testing.T) {
	rs := Default()
	rs.PDFEvidence.ContentRules["a.pdf"] = []ContentRule{{ID: "R1", Type: TypeRegex, Severity: model.SeverityMajor}}
	got := rs.ContentRulesFor("a.pdf")
	got[0].ID = "changed"
	assert.Equal(t, "R1", rs.PDFEvidence.ContentRules["a.pdf"][0].ID)
	assert.Nil(t, rs.ContentRulesFor("missing.pdf"))
}

func TestSeverityForFallsBack(t *testing.T) {
	tr := ThresholdRule{Severity: model.SeverityMinor}
	assert.Equal(t, model.SeverityMinor, tr.SeverityFor(true))
	assert.Equal(t, model.SeverityMinor, tr.SeverityFor(false))
}
