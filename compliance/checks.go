// Package compliance turns extracted values and spreadsheet findings into
// check results, and rolls checks up into section and overall verdicts.
package compliance

import (
	"strings"

	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
)

// Check messages shared by the builders.
const (
	MsgValueMissing    = "Value missing or empty."
	MsgYesNoLenient    = "Missing/unparseable yes/no in DAC PDF (lenient mode)."
	MsgYesNoMissing    = "Expected yes/no but value is missing or not parseable."
	MsgFileNotFound    = "Required file not found."
	MsgExportNotFound  = "Export file not found in evidence directory."
	MsgReferencedByPDF = " (Referenced by DAC PDF.)"
)

// Presence is MET when value has non-whitespace content.
func Presence(id, name string, severity model.Severity, value string) model.CheckResult {
	if v := strings.TrimSpace(value); v != "" {
		return model.CheckResult{
			CheckID:  id,
			Name:     name,
			Status:   model.StatusMet,
			Severity: severity,
			Evidence: model.Evidence{"value": v},
		}
	}
	return model.CheckResult{
		CheckID:  id,
		Name:     name,
		Status:   model.StatusNotMet,
		Severity: severity,
		Message:  MsgValueMissing,
	}
}

// YesNo is MET for a known answer. A missing answer is SKIPPED in lenient
// mode and NOT_MET otherwise.
func YesNo(id, name string, severity model.Severity, answer extractor.Answer, lenient bool) model.CheckResult {
	c := model.CheckResult{CheckID: id, Name: name, Severity: severity}
	switch {
	case answer.Known():
		c.Status = model.StatusMet
		c.Evidence = model.Evidence{"value": string(answer)}
	case lenient:
		c.Status = model.StatusSkipped
		c.Message = MsgYesNoLenient
	default:
		c.Status = model.StatusNotMet
		c.Message = MsgYesNoMissing
	}
	return c
}

// FileExists is MET when path is non-empty. Callers resolve the path
// against the evidence directory first.
func FileExists(id, name string, severity model.Severity, path string) model.CheckResult {
	if path != "" {
		return model.CheckResult{
			CheckID:  id,
			Name:     name,
			Status:   model.StatusMet,
			Severity: severity,
			Evidence: model.Evidence{"file": path},
		}
	}
	return model.CheckResult{
		CheckID:  id,
		Name:     name,
		Status:   model.StatusNotMet,
		Severity: severity,
		Message:  MsgFileNotFound,
	}
}

// ExportExists reports a resolved spreadsheet export. When path is empty the
// message notes whether the DAC referenced the expected file.
func ExportExists(id, name string, severity model.Severity, path, expected string, referenced bool) model.CheckResult {
	if path != "" {
		return model.CheckResult{
			CheckID:  id,
			Name:     name,
			Status:   model.StatusMet,
			Severity: severity,
			Evidence: model.Evidence{"file": path},
		}
	}
	msg := MsgExportNotFound
	if referenced {
		msg += MsgReferencedByPDF
	}
	return model.CheckResult{
		CheckID:  id,
		Name:     name,
		Status:   model.StatusNotMet,
		Severity: severity,
		Message:  msg,
		Evidence: model.Evidence{"expected": expected, "referenced_by_pdf": referenced},
	}
}

// MissingEvidence reports optional evidence that could not be found. In MVP
// mode it is SKIPPED with mvpMessage; otherwise NOT_MET with strictMessage.
func MissingEvidence(id, name string, severity model.Severity, mvp bool, mvpMessage, strictMessage string, ev model.Evidence) model.CheckResult {
	c := model.CheckResult{CheckID: id, Name: name, Severity: severity, Evidence: ev}
	if mvp {
		c.Status = model.StatusSkipped
		c.Message = mvpMessage
		return c
	}
	c.Status = model.StatusNotMet
	c.Message = strictMessage
	return c
}

// Skipped builds a SKIPPED check.
func Skipped(id, name string, severity model.Severity, message string, ev model.Evidence) model.CheckResult {
	return model.CheckResult{
		CheckID:  id,
		Name:     name,
		Status:   model.StatusSkipped,
		Severity: severity,
		Message:  message,
		Evidence: ev,
	}
}
