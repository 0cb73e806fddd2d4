package compliance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/sheet"
)

func check(status model.Status, sev model.Severity) model.CheckResult {
	return model.CheckResult{CheckID: "c", Name: "c", Status: status, Severity: sev}
}

func TestAggregateSection(t *testing.T) {
	cases := []struct {
		name   string
		checks []model.CheckResult
		want   model.Status
	}{
		{"critical not met wins", []model.CheckResult{check(model.StatusMet, model.SeverityMajor), check(model.StatusNotMet, model.SeverityCritical)}, model.StatusNotMet},
		{"met and not met", []model.CheckResult{check(model.StatusMet, model.SeverityMajor), check(model.StatusNotMet, model.SeverityMajor)}, model.StatusPartiallyMet},
		{"not met only", []model.CheckResult{check(model.StatusNotMet, model.SeverityMinor), check(model.StatusSkipped, model.SeverityMajor)}, model.StatusNotMet},
		{"met and skipped", []model.CheckResult{check(model.StatusMet, model.SeverityMajor), check(model.StatusSkipped, model.SeverityMajor)}, model.StatusPartiallyMet},
		{"met and unknown", []model.CheckResult{check(model.StatusMet, model.SeverityMajor), check(model.StatusUnknown, model.SeverityMajor)}, model.StatusPartiallyMet},
		{"met only", []model.CheckResult{check(model.StatusMet, model.SeverityMajor), check(model.StatusMet, model.SeverityCritical)}, model.StatusMet},
		{"skipped only", []model.CheckResult{check(model.StatusSkipped, model.SeverityMajor)}, model.StatusUnknown},
		{"empty", nil, model.StatusUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := AggregateSection("4.1", "Entitlements", tc.checks)
			assert.Equal(t, tc.want, s.Status)
			assert.Equal(t, "4.1", s.SectionID)
			assert.NotNil(t, s.Checks)
		})
	}
}

func TestOverall(t *testing.T) {
	sec := func(ss ...model.Status) []model.SectionResult {
		out := make([]model.SectionResult, len(ss))
		for i, s := range ss {
			out[i] = model.SectionResult{SectionID: "x", Status: s}
		}
		return out
	}
	assert.Equal(t, model.StatusNotMet, Overall(sec(model.StatusNotMet, model.StatusNotMet)))
	assert.Equal(t, model.StatusPartiallyMet, Overall(sec(model.StatusNotMet, model.StatusMet)))
	assert.Equal(t, model.StatusPartiallyMet, Overall(sec(model.StatusMet, model.StatusPartiallyMet)))
	assert.Equal(t, model.StatusMet, Overall(sec(model.StatusMet, model.StatusMet)))
	assert.Equal(t, model.StatusUnknown, Overall(sec(model.StatusMet, model.StatusUnknown)))
	assert.Equal(t, model.StatusMet, Overall(nil))
	assert.Equal(t, model.StatusMet, Overall([]model.SectionResult{}))
}

func TestRecommendations(t *testing.T) {
	sections := []model.SectionResult{
		{SectionID: "1.1", Checks: []model.CheckResult{
			{Name: "CMS Product ID present", Status: model.StatusNotMet, Message: MsgValueMissing},
			{Name: "IT Asset ID present", Status: model.StatusMet},
		}},
		{SectionID: "4.4", Checks: []model.CheckResult{
			{Name: "Functional Area Matrix.xlsx present when SoD relevant", Status: model.StatusNotMet},
		}},
	}
	recs := Recommendations(sections)
	require.Len(t, recs, 2)
	assert.Equal(t, "[1.1] CMS Product ID present: Value missing or empty.", recs[0])
	assert.Equal(t, "[4.4] Functional Area Matrix.xlsx present when SoD relevant: Fix missing/invalid evidence.", recs[1])
	assert.Empty(t, Recommendations(nil))
}

func TestTolerance(t *testing.T) {
	assert.Equal(t, 50, Tolerance(120, 0.10, 50))
	assert.Equal(t, 100, Tolerance(1000, 0.10, 50))
	assert.Equal(t, 5, Tolerance(0, 0.01, 5))
	assert.Equal(t, 9, Tolerance(999, 0.01, 0))
}

func TestThresholdEvaluate(t *testing.T) {
	th := Threshold{Severity: model.SeverityMajor, MVP: true, Ratio: 0.10, Abs: 50}
	f := sheet.Finding{TotalRows: 120, FailingRows: 30, Samples: []map[string]any{{"Display name": "X"}}}

	c := th.Evaluate("S4.1-EX-01", "required", f, nil)
	assert.Equal(t, model.StatusMet, c.Status)
	assert.Equal(t, "MVP warning: 30 of 120 rows failed (tolerance=50).", c.Message)
	assert.Equal(t, 30, c.Evidence["failing_rows"])

	th.MVP = false
	c = th.Evaluate("S4.1-EX-01", "required", f, nil)
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, "30 of 120 rows failed.", c.Message)

	th.MVP = true
	f.FailingRows = 51
	c = th.Evaluate("S4.1-EX-01", "required", f, nil)
	assert.Equal(t, model.StatusNotMet, c.Status)

	c = th.Evaluate("S4.1-EX-01", "required", sheet.Finding{TotalRows: 7}, nil)
	assert.Equal(t, model.StatusMet, c.Status)
	assert.Empty(t, c.Message)
	assert.Equal(t, model.Evidence{"total_rows": 7}, c.Evidence)

	extra := model.Evidence{"total_rows": 7, "owner_cols_used": []string{"cust_owner"}}
	c = th.Evaluate("S4.2-EX-01", "owner", sheet.Finding{TotalRows: 7}, extra)
	assert.Equal(t, extra, c.Evidence)
}

func TestPresence(t *testing.T) {
	c := Presence("S1.1-01", "CMS Product ID present", model.SeverityMajor, " 1513344 ")
	assert.Equal(t, model.StatusMet, c.Status)
	assert.Equal(t, "1513344", c.Evidence["value"])

	c = Presence("S1.1-01", "CMS Product ID present", model.SeverityMajor, "  ")
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, MsgValueMissing, c.Message)
}

func TestYesNo(t *testing.T) {
	c := YesNo("S4.1-01", "SoD", model.SeverityCritical, extractor.AnswerYes, false)
	assert.Equal(t, model.StatusMet, c.Status)
	assert.Equal(t, "yes", c.Evidence["value"])

	c = YesNo("S4.1-01", "SoD", model.SeverityCritical, extractor.AnswerNone, true)
	assert.Equal(t, model.StatusSkipped, c.Status)
	assert.Equal(t, MsgYesNoLenient, c.Message)

	c = YesNo("S4.1-01", "SoD", model.SeverityCritical, extractor.AnswerNone, false)
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, MsgYesNoMissing, c.Message)
	assert.Equal(t, model.SeverityCritical, c.Severity)
}

func TestExportExists(t *testing.T) {
	c := ExportExists("S4.1-F01", "Export present: All Entitlements.xlsx", model.SeverityMajor, "", "All Entitlements.xlsx", true)
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, "Export file not found in evidence directory. (Referenced by DAC PDF.)", c.Message)
	assert.Equal(t, true, c.Evidence["referenced_by_pdf"])

	c = ExportExists("S4.1-F01", "x", model.SeverityMajor, "", "All Entitlements.xlsx", false)
	assert.False(t, strings.Contains(c.Message, "Referenced"))

	c = ExportExists("S4.1-F01", "x", model.SeverityMajor, "/ev/All Entitlements.xlsx", "All Entitlements.xlsx", false)
	assert.Equal(t, model.StatusMet, c.Status)
	assert.Equal(t, "/ev/All Entitlements.xlsx", c.Evidence["file"])
}

func TestFileExistsAndMissingEvidence(t *testing.T) {
	assert.Equal(t, model.StatusMet, FileExists("S4.4-01", "m", model.SeverityMajor, "/ev/m.xlsx").Status)
	c := FileExists("S4.4-01", "m", model.SeverityMajor, "")
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, MsgFileNotFound, c.Message)

	ev := model.Evidence{"expected": "a.pdf"}
	c = MissingEvidence("S2.0-01", "p", model.SeverityMajor, true, "skip", "fail", ev)
	assert.Equal(t, model.StatusSkipped, c.Status)
	assert.Equal(t, "skip", c.Message)
	c = MissingEvidence("S2.0-01", "p", model.SeverityMajor, false, "skip", "fail", ev)
	assert.Equal(t, model.StatusNotMet, c.Status)
	assert.Equal(t, "fail", c.Message)

	c = Skipped("S4.4-01", "m", model.SeverityMinor, "why", nil)
	assert.Equal(t, model.StatusSkipped, c.Status)
}
