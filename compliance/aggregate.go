package compliance

import (
	"github.com/KPoloska/dac-agent/model"
)

// FallbackRecommendation is used for NOT_MET checks without a message.
const FallbackRecommendation = "Fix missing/invalid evidence."

// AggregateSection derives a section status from its checks. Precedence:
// a critical NOT_MET wins, then NOT_MET mixed with MET is PARTIALLY_MET,
// NOT_MET alone is NOT_MET, MET mixed with SKIPPED or UNKNOWN is
// PARTIALLY_MET, MET alone is MET. Anything else is UNKNOWN.
func AggregateSection(id, name string, checks []model.CheckResult) model.SectionResult {
	var critNot, anyNot, anyMet, anyOther bool
	for _, c := range checks {
		switch c.Status {
		case model.StatusNotMet:
			anyNot = true
			if c.Severity == model.SeverityCritical {
				critNot = true
			}
		case model.StatusMet:
			anyMet = true
		case model.StatusSkipped, model.StatusUnknown:
			anyOther = true
		}
	}
	status := model.StatusUnknown
	switch {
	case critNot:
		status = model.StatusNotMet
	case anyNot && anyMet:
		status = model.StatusPartiallyMet
	case anyNot:
		status = model.StatusNotMet
	case anyMet && anyOther:
		status = model.StatusPartiallyMet
	case anyMet:
		status = model.StatusMet
	}
	if checks == nil {
		checks = []model.CheckResult{}
	}
	return model.SectionResult{SectionID: id, Name: name, Status: status, Checks: checks}
}

// Overall derives the review status from section statuses. An empty list is
// vacuously MET.
func Overall(sections []model.SectionResult) model.Status {
	if len(sections) == 0 {
		return model.StatusMet
	}
	notMet, partial, met := 0, 0, 0
	for _, s := range sections {
		switch s.Status {
		case model.StatusNotMet:
			notMet++
		case model.StatusPartiallyMet:
			partial++
		case model.StatusMet:
			met++
		}
	}
	switch {
	case notMet == len(sections):
		return model.StatusNotMet
	case notMet > 0, partial > 0:
		return model.StatusPartiallyMet
	case met == len(sections):
		return model.StatusMet
	}
	return model.StatusUnknown
}

// Recommendations lists one line per NOT_MET check in section then check
// order.
func Recommendations(sections []model.SectionResult) []string {
	recs := []string{}
	for _, s := range sections {
		for _, c := range s.Checks {
			if c.Status != model.StatusNotMet {
				continue
			}
			msg := c.Message
			if msg == "" {
				msg = FallbackRecommendation
			}
			recs = append(recs, "["+s.SectionID+"] "+c.Name+": "+msg)
		}
	}
	return recs
}
