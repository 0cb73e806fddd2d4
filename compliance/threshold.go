package compliance

import (
	"fmt"

	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/sheet"
)

// Tolerance returns how many failing rows MVP mode accepts:
// max(abs, floor(total*ratio)).
func Tolerance(total int, ratio float64, abs int) int {
	byRatio := int(float64(total) * ratio)
	if byRatio > abs {
		return byRatio
	}
	return abs
}

// Threshold evaluates a spreadsheet finding against a row tolerance.
type Threshold struct {
	Severity model.Severity
	MVP      bool
	Ratio    float64
	Abs      int
}

// Evaluate turns a finding into a check. Zero failing rows is MET; in MVP
// mode failures within tolerance are MET with a warning; anything else is
// NOT_MET. When extra is non-nil it replaces the default evidence for every
// outcome.
func (t Threshold) Evaluate(id, name string, f sheet.Finding, extra model.Evidence) model.CheckResult {
	c := model.CheckResult{CheckID: id, Name: name, Severity: t.Severity}
	ev := extra
	if f.FailingRows == 0 {
		if ev == nil {
			ev = model.Evidence{"total_rows": f.TotalRows}
		}
		c.Status = model.StatusMet
		c.Evidence = ev
		return c
	}
	if ev == nil {
		ev = model.Evidence{
			"total_rows":   f.TotalRows,
			"failing_rows": f.FailingRows,
			"samples":      f.Samples,
		}
	}
	c.Evidence = ev
	tol := Tolerance(f.TotalRows, t.Ratio, t.Abs)
	if t.MVP && f.FailingRows <= tol {
		c.Status = model.StatusMet
		c.Message = fmt.Sprintf("MVP warning: %d of %d rows failed (tolerance=%d).", f.FailingRows, f.TotalRows, tol)
		return c
	}
	c.Status = model.StatusNotMet
	c.Message = fmt.Sprintf("%d of %d rows failed.", f.FailingRows, f.TotalRows)
	return c
}
