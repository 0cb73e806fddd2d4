// Package rules models the externally defined rule set a DAC review runs
// against. A RuleSet is loaded once and then only read.
package rules

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KPoloska/dac-agent/model"
)

// ErrInvalidRule is wrapped by every Validate failure.
var ErrInvalidRule = errors.New("invalid rule")

// Content rule types.
const (
	TypeRegex    = "regex"
	TypeContains = "contains"
	TypeScript   = "script"
)

// ContentRule is a pattern or substring assertion against the text of one
// evidence PDF.
type ContentRule struct {
	ID       string
	Name     string
	Type     string
	Pattern  string
	Contains string
	// Script is a JavaScript expression evaluated with the document text in
	// scope; a truthy result means the rule is satisfied.
	Script   string
	Severity model.Severity
}

// PDFEvidence lists the evidence PDFs a DAC must be accompanied by.
type PDFEvidence struct {
	RequiredFiles     []string
	MinTextChars      int
	OCRImageThreshold int
	ContentRules      map[string][]ContentRule
}

// ThresholdRule carries the row-failure tolerance of a spreadsheet check.
type ThresholdRule struct {
	RatioTolerance float64
	AbsTolerance   int
	Severity       model.Severity
	// MVPSeverity and StrictSeverity override Severity in the matching mode.
	MVPSeverity    model.Severity
	StrictSeverity model.Severity
}

// SeverityFor resolves the severity for the given mode.
func (t ThresholdRule) SeverityFor(mvp bool) model.Severity {
	if mvp && t.MVPSeverity != "" {
		return t.MVPSeverity
	}
	if !mvp && t.StrictSeverity != "" {
		return t.StrictSeverity
	}
	return t.Severity
}

// RuleSet is the complete, immutable configuration of a review.
type RuleSet struct {
	PDFEvidence              PDFEvidence
	EntitlementsRequired     ThresholdRule
	EntitlementsDescriptions ThresholdRule
	ITRolesRequired          ThresholdRule
	ITRolesDescriptions      ThresholdRule
}

// Default returns the rule set used when no configuration is supplied.
func Default() RuleSet {
	return RuleSet{
		PDFEvidence: PDFEvidence{
			MinTextChars:      200,
			OCRImageThreshold: 1,
			ContentRules:      map[string][]ContentRule{},
		},
		EntitlementsRequired:     ThresholdRule{RatioTolerance: 0.10, AbsTolerance: 50, Severity: model.SeverityMajor},
		EntitlementsDescriptions: ThresholdRule{RatioTolerance: 0.10, AbsTolerance: 50, Severity: model.SeverityMajor},
		ITRolesRequired:          ThresholdRule{RatioTolerance: 0.01, AbsTolerance: 5, Severity: model.SeverityMajor},
		ITRolesDescriptions:      ThresholdRule{RatioTolerance: 0.01, AbsTolerance: 5, Severity: model.SeverityMajor},
	}
}

// ContentRulesFor returns a copy of the content rules configured for file.
func (r RuleSet) ContentRulesFor(file string) []ContentRule {
	src := r.PDFEvidence.ContentRules[file]
	if len(src) == 0 {
		return nil
	}
	return append([]ContentRule(nil), src...)
}

// Validate reports structural problems. Regex patterns are deliberately not
// compiled here; a bad pattern only fails its own check at evaluation time.
func (r RuleSet) Validate() error {
	if r.PDFEvidence.MinTextChars < 0 {
		return fmt.Errorf("%w: min_text_chars must be >= 0", ErrInvalidRule)
	}
	if r.PDFEvidence.OCRImageThreshold < 0 {
		return fmt.Errorf("%w: ocr_image_threshold must be >= 0", ErrInvalidRule)
	}
	for file, list := range r.PDFEvidence.ContentRules {
		seen := make(map[string]bool, len(list))
		for _, cr := range list {
			if strings.TrimSpace(cr.ID) == "" {
				return fmt.Errorf("%w: content rule for %s has empty id", ErrInvalidRule, file)
			}
			if seen[cr.ID] {
				return fmt.Errorf("%w: duplicate content rule id %q for %s", ErrInvalidRule, cr.ID, file)
			}
			seen[cr.ID] = true
			switch cr.Type {
			case TypeRegex, TypeContains, TypeScript:
			default:
				return fmt.Errorf("%w: content rule %q has unknown type %q", ErrInvalidRule, cr.ID, cr.Type)
			}
			if !cr.Severity.Valid() {
				return fmt.Errorf("%w: content rule %q has unknown severity %q", ErrInvalidRule, cr.ID, cr.Severity)
			}
		}
	}
	thresholds := map[string]ThresholdRule{
		"entitlements_required":     r.EntitlementsRequired,
		"entitlements_descriptions": r.EntitlementsDescriptions,
		"itroles_required":          r.ITRolesRequired,
		"itroles_descriptions":      r.ITRolesDescriptions,
	}
	for name, t := range thresholds {
		if t.RatioTolerance < 0 || t.AbsTolerance < 0 {
			return fmt.Errorf("%w: %s tolerances must be >= 0", ErrInvalidRule, name)
		}
		if math.IsNaN(t.RatioTolerance) || math.IsInf(t.RatioTolerance, 0) {
			return fmt.Errorf("%w: %s ratio_tol must be finite", ErrInvalidRule, name)
		}
		for _, s := range []model.Severity{t.Severity, t.MVPSeverity, t.StrictSeverity} {
			if s != "" && !s.Valid() {
				return fmt.Errorf("%w: %s has unknown severity %q", ErrInvalidRule, name, s)
			}
		}
	}
	return nil
}

type fileConfig struct {
	PDFEvidence struct {
		RequiredFiles     []string                      `yaml:"required_files"`
		MinTextChars      *int                          `yaml:"min_text_chars"`
		OCRImageThreshold *int                          `yaml:"ocr_image_threshold"`
		ContentRules      map[string][]contentRuleBlock `yaml:"content_rules"`
	} `yaml:"pdf_evidence"`
	ExcelThresholds struct {
		EntitlementsRequired     *thresholdBlock `yaml:"entitlements_required"`
		EntitlementsDescriptions *thresholdBlock `yaml:"entitlements_descriptions"`
		ITRolesRequired          *thresholdBlock `yaml:"itroles_required"`
		ITRolesDescriptions      *thresholdBlock `yaml:"itroles_descriptions"`
	} `yaml:"excel_thresholds"`
}

type contentRuleBlock struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Pattern  string `yaml:"pattern"`
	Contains string `yaml:"contains"`
	Script   string `yaml:"script"`
	Severity string `yaml:"severity"`
}

type thresholdBlock struct {
	RatioTol       *float64 `yaml:"ratio_tol"`
	AbsTol         *int     `yaml:"abs_tol"`
	Severity       string   `yaml:"severity"`
	MVPSeverity    string   `yaml:"mvp_severity"`
	NonMVPSeverity string   `yaml:"non_mvp_severity"`
}

func (b *thresholdBlock) apply(dst *ThresholdRule) {
	if b == nil {
		return
	}
	if b.RatioTol != nil {
		dst.RatioTolerance = *b.RatioTol
	}
	if b.AbsTol != nil {
		dst.AbsTolerance = *b.AbsTol
	}
	if s := strings.TrimSpace(b.Severity); s != "" {
		dst.Severity = model.Severity(s)
	}
	dst.MVPSeverity = model.Severity(strings.TrimSpace(b.MVPSeverity))
	dst.StrictSeverity = model.Severity(strings.TrimSpace(b.NonMVPSeverity))
}

// Load reads and validates a YAML rule file. An empty path yields Default().
func Load(path string) (RuleSet, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes YAML rule data on top of Default() and validates the result.
// Content rules without an id are dropped.
func Parse(data []byte) (RuleSet, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules: %w", err)
	}
	rs := Default()
	pe := cfg.PDFEvidence
	rs.PDFEvidence.RequiredFiles = append([]string(nil), pe.RequiredFiles...)
	// Zero falls back to the default threshold.
	if pe.MinTextChars != nil && *pe.MinTextChars != 0 {
		rs.PDFEvidence.MinTextChars = *pe.MinTextChars
	}
	if pe.OCRImageThreshold != nil {
		rs.PDFEvidence.OCRImageThreshold = *pe.OCRImageThreshold
	}
	for file, blocks := range pe.ContentRules {
		var parsed []ContentRule
		for _, b := range blocks {
			id := strings.TrimSpace(b.ID)
			if id == "" {
				continue
			}
			cr := ContentRule{
				ID:       id,
				Name:     strings.TrimSpace(b.Name),
				Type:     strings.ToLower(strings.TrimSpace(b.Type)),
				Pattern:  b.Pattern,
				Contains: b.Contains,
				Script:   b.Script,
				Severity: model.Severity(strings.TrimSpace(b.Severity)),
			}
			if cr.Name == "" {
				cr.Name = id
			}
			if cr.Type == "" {
				cr.Type = TypeRegex
			}
			if cr.Severity == "" {
				cr.Severity = model.SeverityMajor
			}
			parsed = append(parsed, cr)
		}
		if len(parsed) > 0 {
			rs.PDFEvidence.ContentRules[file] = parsed
		}
	}
	ex := cfg.ExcelThresholds
	ex.EntitlementsRequired.apply(&rs.EntitlementsRequired)
	ex.EntitlementsDescriptions.apply(&rs.EntitlementsDescriptions)
	ex.ITRolesRequired.apply(&rs.ITRolesRequired)
	ex.ITRolesDescriptions.apply(&rs.ITRolesDescriptions)

	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}
