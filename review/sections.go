package review

import (
	"fmt"
	"path/filepath"

	"github.com/KPoloska/dac-agent/compliance"
	"github.com/KPoloska/dac-agent/evidence"
	"github.com/KPoloska/dac-agent/extractor"
	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/observability"
	"github.com/KPoloska/dac-agent/rules"
	"github.com/KPoloska/dac-agent/sheet"
)

// Spreadsheet exports named by the DAC process.
const (
	exportEntitlementServices  = "Entitlement Services.xlsx"
	exportAllEntitlements      = "All Entitlements.xlsx"
	exportITRoleServices       = "IT Role Services.xlsx"
	exportSpecialAccounts      = "Special Accounts Services.xlsx"
	exportFunctionalAreaMatrix = "Functional Area Matrix.xlsx"
)

var (
	entitlementExports = []string{exportEntitlementServices, exportAllEntitlements}

	itRoleExports = []string{
		exportITRoleServices,
		"All my Roles.xlsx",
		"All my Application Roles.xlsx",
		"All my IT Roles without Application Role.xlsx",
	}

	entitlementRequired = []string{"Display name", "Description", "SoD Area", "Tier Level"}
	itRoleBase          = []string{"Display name", "Description", "Tier Level"}
	itRoleOwners        = []string{"IT Role Owner", "cust_owner", "Application Owner"}

	entitlementAnchors = []string{"Application is", "SoD relevant", "Functional Area", "upload the"}
	cifAnchors         = []string{"Is Application a", "critical and", "important"}
)

var (
	sodStrategies = []extractor.AnswerStrategy{
		extractor.PageAnswers{Anchors: entitlementAnchors, Rules: []extractor.LineRule{
			extractor.AfterLabels("SoD relevant?", "Application is", "Application is SoD relevant?"),
			extractor.Stacked("Application is", "SoD relevant?"),
		}},
		extractor.NearAnswers{Patterns: []string{`SoD\s+relevant\??`, `Application\s+is.*SoD\s+relevant`}},
	}

	faStrategies = []extractor.AnswerStrategy{
		extractor.PageAnswers{Anchors: entitlementAnchors, Rules: []extractor.LineRule{
			extractor.Stacked("Functional Area", "relevant?"),
			extractor.AfterLabels("Functional Area relevant?"),
		}},
		extractor.NearAnswers{Patterns: []string{`Functional\s+Area.*relevant\??`}},
	}

	uploadStrategies = []extractor.AnswerStrategy{
		extractor.PageAnswers{Anchors: entitlementAnchors, Rules: []extractor.LineRule{
			extractor.Stacked("Do you want to", "upload the", "entitlement", "composition?"),
			extractor.AfterLabels("upload the entitlement composition"),
		}},
		extractor.NearAnswers{Patterns: []string{`upload\s+the\s+entitlement\s+composition`}},
	}

	cifStrategies = []extractor.AnswerStrategy{
		extractor.PageAnswers{Anchors: cifAnchors, Rules: []extractor.LineRule{
			extractor.AfterLabels(cifAnchors...),
			extractor.Stacked(cifAnchors...),
		}},
		extractor.NearAnswers{Patterns: []string{`Is\s+Application\s+a.*critical.*important`}},
	}
)

func (rn *run) answer(event, field string, strategies []extractor.AnswerStrategy) extractor.Answer {
	hit := extractor.ResolveAnswer(rn.doc, strategies...)
	rn.trace.Record(event,
		"field", field,
		"page", hit.Page,
		"value", string(hit.Answer),
		"method", hit.Strategy)
	return hit.Answer
}

// export resolves an expected spreadsheet in the evidence directory.
func (rn *run) export(name string) string {
	return evidence.FindExport(rn.evidenceDir, rn.referenced, name)
}

func (rn *run) exportCheck(id, name string) model.CheckResult {
	return compliance.ExportExists(id, "Export present: "+name, model.SeverityMajor,
		rn.export(name), name, evidence.IsReferenced(rn.referenced, name))
}

// table reads a spreadsheet once per run.
func (rn *run) table(path string) (*sheet.Table, error) {
	if res, ok := rn.tables[path]; ok {
		return res.table, res.err
	}
	t, err := rn.sheets.Read(path)
	if err != nil {
		rn.log.Warn("spreadsheet unreadable",
			observability.String("file", filepath.Base(path)),
			observability.Error("error", err))
	}
	rn.tables[path] = tableResult{table: t, err: err}
	return t, err
}

// unreadable reports a data check whose export exists but cannot be read.
func (rn *run) unreadable(id, name string, severity model.Severity, path string, err error) model.CheckResult {
	return compliance.MissingEvidence(id, name, severity, rn.modes.MVP,
		"MVP: export could not be read; skipping.",
		"Export could not be read: "+err.Error(),
		model.Evidence{"file": path, "error": err.Error()})
}

func (rn *run) threshold(rule rules.ThresholdRule) compliance.Threshold {
	return compliance.Threshold{
		Severity: rule.SeverityFor(rn.modes.MVP),
		MVP:      rn.modes.MVP,
		Ratio:    rule.RatioTolerance,
		Abs:      rule.AbsTolerance,
	}
}

// modeSeverity picks the severity of checks whose weight depends on mode.
func (rn *run) modeSeverity(mvp, strict model.Severity) model.Severity {
	if rn.modes.MVP {
		return mvp
	}
	return strict
}

// entitlements is section 4.1.
func (rn *run) entitlements() model.SectionResult {
	rn.trace.Record("sec4.1_candidate_pages", "pages", extractor.CandidatePages(rn.doc, entitlementAnchors))
	sod := rn.answer("sec4.1_extract", "sod", sodStrategies)
	fa := rn.answer("sec4.1_extract", "fa", faStrategies)
	upload := rn.answer("sec4.1_extract", "upload", uploadStrategies)
	rn.sod = sod

	lenient := rn.modes.Lenient
	checks := []model.CheckResult{
		compliance.YesNo("S4.1-01", "SoD relevancy recorded (yes/no)", model.SeverityCritical, sod, lenient),
		compliance.YesNo("S4.1-02", "Functional Area relevancy recorded (yes/no)", model.SeverityMajor, fa, lenient),
		compliance.YesNo("S4.1-03", "Entitlement composition upload decision recorded (yes/no)", model.SeverityMajor, upload, lenient),
	}
	for i, name := range entitlementExports {
		checks = append(checks, rn.exportCheck(fmt.Sprintf("S4.1-F%02d", i+1), name))
	}

	const (
		requiredName = "Entitlement Services: required master data filled"
		descName     = "Entitlement Services: descriptions are meaningful"
	)
	reqRule := rn.rules.EntitlementsRequired
	esPath := rn.export(exportEntitlementServices)
	var esTable *sheet.Table
	switch {
	case esPath == "":
		sev := reqRule.StrictSeverity
		if sev == "" {
			sev = model.SeverityCritical
		}
		if rn.modes.MVP {
			sev = reqRule.MVPSeverity
			if sev == "" {
				sev = model.SeverityMajor
			}
		}
		checks = append(checks, compliance.Skipped("S4.1-EX-01", requiredName, sev,
			"Skipped because Entitlement Services export was not found.", nil))
	default:
		t, err := rn.table(esPath)
		if err != nil {
			checks = append(checks,
				rn.unreadable("S4.1-EX-01", requiredName, reqRule.SeverityFor(rn.modes.MVP), esPath, err),
				rn.unreadable("S4.1-EX-02", descName, rn.rules.EntitlementsDescriptions.SeverityFor(rn.modes.MVP), esPath, err))
			break
		}
		esTable = t
		f1 := sheet.RequiredNonEmpty(t, entitlementRequired, "Display name", sheet.DefaultMaxSamples)
		checks = append(checks, rn.threshold(reqRule).Evaluate("S4.1-EX-01", requiredName, f1, nil))
		f2 := sheet.MeaningfulDescriptions(t, "Display name", "Description", sheet.DefaultMaxSamples)
		checks = append(checks, rn.threshold(rn.rules.EntitlementsDescriptions).Evaluate("S4.1-EX-02", descName, f2, nil))
	}

	if fa == extractor.AnswerYes {
		checks = append(checks, rn.functionalAreaPopulated(esTable))
	}
	return compliance.AggregateSection("4.1", "Entitlements", checks)
}

// functionalAreaPopulated requires a Functional Area value in Entitlement
// Services or a DBG Functional Area value in All Entitlements.
func (rn *run) functionalAreaPopulated(es *sheet.Table) model.CheckResult {
	ev := model.Evidence{}
	ok := false
	if es != nil {
		if n, has := sheet.NonEmptyCount(es, "Functional Area"); has {
			ev["entitlement_services_fa_non_empty_rows"] = n
			ok = ok || n > 0
		}
	}
	if p := rn.export(exportAllEntitlements); p != "" {
		if t, err := rn.table(p); err == nil {
			if n, has := sheet.NonEmptyCount(t, "DBG Functional Area"); has {
				ev["all_entitlements_dbg_fa_non_empty_rows"] = n
				ok = ok || n > 0
			}
		}
	}
	c := model.CheckResult{
		CheckID:  "S4.1-EX-FA",
		Name:     "Functional Area populated when FA relevancy = yes (Entitlement Services OR All Entitlements)",
		Severity: rn.modeSeverity(model.SeverityMajor, model.SeverityCritical),
		Evidence: ev,
	}
	switch {
	case ok:
		c.Status = model.StatusMet
	case rn.modes.MVP:
		c.Status = model.StatusMet
		c.Message = "MVP: Treating as warning."
	default:
		c.Status = model.StatusNotMet
		c.Message = "FA relevancy is yes, but Functional Area is empty in both Entitlement Services and All Entitlements."
	}
	return c
}

// itRoles is section 4.2.
func (rn *run) itRoles() model.SectionResult {
	rn.trace.Record("sec4.2_candidate_pages", "pages", extractor.CandidatePages(rn.doc, cifAnchors))
	cif := rn.answer("sec4.2_extract", "cif", cifStrategies)
	checks := []model.CheckResult{
		compliance.YesNo("S4.2-01", "CIF (critical & important function) recorded (yes/no)", model.SeverityMajor, cif, rn.modes.Lenient),
	}
	for i, name := range itRoleExports {
		checks = append(checks, rn.exportCheck(fmt.Sprintf("S4.2-F%02d", i+1), name))
	}

	const (
		requiredName = "IT Role Services: required master data filled"
		ownerName    = "IT Role Services: required master data filled (base + owner fallback)"
		descName     = "IT Role Services: descriptions are meaningful"
	)
	reqRule := rn.rules.ITRolesRequired
	path := rn.export(exportITRoleServices)
	if path == "" {
		checks = append(checks, compliance.Skipped("S4.2-EX-01", requiredName,
			rn.modeSeverity(model.SeverityMajor, model.SeverityCritical),
			"Skipped because IT Role Services export was not found.", nil))
		return compliance.AggregateSection("4.2", "IT Roles", checks)
	}
	t, err := rn.table(path)
	if err != nil {
		checks = append(checks,
			rn.unreadable("S4.2-EX-01", requiredName, reqRule.SeverityFor(rn.modes.MVP), path, err),
			rn.unreadable("S4.2-EX-02", descName, rn.rules.ITRolesDescriptions.SeverityFor(rn.modes.MVP), path, err))
		return compliance.AggregateSection("4.2", "IT Roles", checks)
	}

	if missing := t.Missing(itRoleBase...); len(missing) > 0 {
		c := model.CheckResult{
			CheckID:  "S4.2-EX-01",
			Name:     requiredName,
			Severity: rn.modeSeverity(model.SeverityMajor, model.SeverityCritical),
			Evidence: model.Evidence{"missing_columns": missing},
		}
		if rn.modes.MVP {
			c.Status = model.StatusMet
			c.Message = "MVP: missing columns but not blocking."
		} else {
			c.Status = model.StatusNotMet
			c.Message = "Missing required columns: " + sheet.FormatColumns(missing)
		}
		checks = append(checks, c)
	} else {
		f, owners := sheet.OwnerFallback(t, itRoleBase, itRoleOwners, sheet.DefaultMaxSamples)
		samples := f.Samples
		if samples == nil {
			samples = []map[string]any{}
		}
		ev := model.Evidence{
			"total_rows":      f.TotalRows,
			"failing_rows":    f.FailingRows,
			"owner_cols_used": owners,
			"samples":         samples,
		}
		checks = append(checks, rn.threshold(reqRule).Evaluate("S4.2-EX-01", ownerName, f, ev))
	}

	f2 := sheet.MeaningfulDescriptions(t, "Display name", "Description", sheet.DefaultMaxSamples)
	checks = append(checks, rn.threshold(rn.rules.ITRolesDescriptions).Evaluate("S4.2-EX-02", descName, f2, nil))
	return compliance.AggregateSection("4.2", "IT Roles", checks)
}

// specialAccounts is section 4.3. The export is optional in MVP mode.
func (rn *run) specialAccounts() model.SectionResult {
	const id = "S4.3-01"
	name := exportSpecialAccounts
	var c model.CheckResult
	if rn.modes.MVP && rn.export(name) == "" {
		c = compliance.Skipped(id, "Export present: "+name, model.SeverityMajor,
			"MVP: Special Accounts export not provided; skipping (still recommended to include for full validation).",
			model.Evidence{"expected": name, "referenced_by_pdf": evidence.IsReferenced(rn.referenced, name)})
	} else {
		c = rn.exportCheck(id, name)
	}
	return compliance.AggregateSection("4.3", "Special Accounts", []model.CheckResult{c})
}

// segregationOfDuties is section 4.4. It depends on the SoD answer from
// section 4.1.
func (rn *run) segregationOfDuties() model.SectionResult {
	const name = "Functional Area Matrix.xlsx present when SoD relevant"
	var c model.CheckResult
	if rn.sod == extractor.AnswerYes {
		c = compliance.FileExists("S4.4-01", name, model.SeverityMajor, rn.export(exportFunctionalAreaMatrix))
	} else {
		c = compliance.Skipped("S4.4-01", name, model.SeverityMajor,
			"Skipped because SoD relevancy is not 'yes' (or could not be extracted).", nil)
	}
	return compliance.AggregateSection("4.4", "Segregation of Duties", []model.CheckResult{c})
}
