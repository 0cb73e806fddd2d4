package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestSanitizeReplacesNonFiniteFloats(t *testing.T) {
	in := Evidence{
		"nan":    math.NaN(),
		"inf":    math.Inf(1),
		"ok":     1.5,
		"nested": []any{math.Inf(-1), "x"},
		"rows":   []map[string]any{{"Tier Level": math.NaN()}},
	}
	out := Sanitize(in).(map[string]any)
	if out["nan"] != nil || out["inf"] != nil {
		t.Fatalf("expected non-finite floats to become nil: %+v", out)
	}
	if out["ok"] != 1.5 {
		t.Fatalf("finite float changed: %v", out["ok"])
	}
	nested := out["nested"].([]any)
	if nested[0] != nil || nested[1] != "x" {
		t.Fatalf("unexpected nested slice: %+v", nested)
	}
	rows := out["rows"].([]any)
	if row := rows[0].(map[string]any); row["Tier Level"] != nil {
		t.Fatalf("unexpected row: %+v", row)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("sanitized value is not encodable: %v", err)
	}
}

func TestSanitizeStructHonorsJSONTags(t *testing.T) {
	type meta struct {
		Pages []int `json:"pages_used"`
		Err   string `json:"error,omitempty"`
	}
	out := Sanitize(meta{Pages: []int{0, 2}}).(map[string]any)
	if _, ok := out["pages_used"]; !ok {
		t.Fatalf("expected json tag key, got %+v", out)
	}
	if _, ok := out["error"]; ok {
		t.Fatalf("omitempty field should be absent: %+v", out)
	}
}

func TestCanonicalIsDeterministic(t *testing.T) {
	r := &ReviewResult{
		DACFile:       "dac.pdf",
		GeneratedAt:   time.Date(2025, 11, 11, 8, 0, 0, 0, time.UTC),
		OverallStatus: StatusPartiallyMet,
		Sections: []SectionResult{{
			SectionID: "1.1",
			Name:      "General Information",
			Status:    StatusMet,
			Checks: []CheckResult{{
				CheckID:  "S1.1-01",
				Name:     "CMS Product ID present",
				Status:   StatusMet,
				Severity: SeverityMajor,
				Evidence: Evidence{"value": "1513344", "ratio": math.NaN()},
			}},
		}},
		Stats: map[string]any{"b": 1, "a": 2},
	}
	first, err := Canonical(r)
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	second, err := Canonical(r)
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("canonical form differs between runs")
	}
	if !strings.Contains(string(first), `"ratio":null`) {
		t.Fatalf("NaN should serialize as null: %s", first)
	}
	if strings.Index(string(first), `"a":2`) > strings.Index(string(first), `"b":1`) {
		t.Fatalf("keys are not sorted: %s", first)
	}
}

func TestSanitizedKeepsOrder(t *testing.T) {
	r := &ReviewResult{Sections: []SectionResult{
		{SectionID: "1.1", Checks: []CheckResult{{CheckID: "a"}, {CheckID: "b"}}},
		{SectionID: "2.0"},
	}}
	s := r.Sanitized()
	if s.Sections[0].Checks[1].CheckID != "b" || s.Sections[1].SectionID != "2.0" {
		t.Fatalf("order not preserved: %+v", s.Sections)
	}
	if s.Sections[0].Checks[0].Evidence == nil || s.Stats == nil {
		t.Fatalf("expected empty bags instead of nil")
	}
	if r.CountChecks() != 2 {
		t.Fatalf("CountChecks() = %d", r.CountChecks())
	}
}

func TestStatusAndSeverityValid(t *testing.T) {
	if !StatusPartiallyMet.Valid() || Status("DONE").Valid() {
		t.Fatalf("status validation broken")
	}
	if !SeverityInfo.Valid() || Severity("blocker").Valid() {
		t.Fatalf("severity validation broken")
	}
}
