package compliance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/KPoloska/dac-agent/model"
	"github.com/KPoloska/dac-agent/rules"
	"github.com/KPoloska/dac-agent/scripting"
)

// ScriptTimeout bounds a single script content rule.
const ScriptTimeout = 2 * time.Second

// Content rule messages.
const (
	MsgContentNoText   = "No extractable text; content rule not evaluated."
	MsgContentMismatch = "Required content not found in evidence PDF."
)

// maxMatchLen caps the matched snippet kept as evidence.
const maxMatchLen = 120

// ScriptFactory returns a fresh script engine for one rule evaluation.
type ScriptFactory func() scripting.Engine

// ContentRules evaluates each rule against the text of one evidence PDF.
// Check ids are idPrefix + "-CR-" + rule id. Rules are isolated: an invalid
// pattern or a failing script only affects its own check, which is NOT_MET
// in strict mode and MET with a warning in MVP mode. Empty text yields
// SKIPPED checks. A nil factory uses scripting.NewEngine.
func ContentRules(ctx context.Context, idPrefix string, doc scripting.TextView, list []rules.ContentRule, mvp bool, scripts ScriptFactory) []model.CheckResult {
	if len(list) == 0 {
		return nil
	}
	if scripts == nil {
		scripts = func() scripting.Engine { return scripting.NewEngine() }
	}
	text := ""
	if doc != nil {
		text = doc.Text()
	}
	out := make([]model.CheckResult, 0, len(list))
	for _, r := range list {
		c := model.CheckResult{
			CheckID:  idPrefix + "-CR-" + r.ID,
			Name:     r.Name,
			Severity: r.Severity,
			Evidence: model.Evidence{"rule_id": r.ID, "type": r.Type},
		}
		if strings.TrimSpace(text) == "" {
			c.Status = model.StatusSkipped
			c.Message = MsgContentNoText
			out = append(out, c)
			continue
		}
		matched, snippet, err := evalContentRule(ctx, r, doc, text, scripts)
		switch {
		case err != nil:
			c.Evidence["error"] = err.Error()
			if mvp {
				c.Status = model.StatusMet
				c.Message = "MVP warning: content rule could not be evaluated."
			} else {
				c.Status = model.StatusNotMet
				c.Message = "Content rule could not be evaluated: " + err.Error()
			}
		case matched:
			c.Status = model.StatusMet
			if snippet != "" {
				c.Evidence["match"] = snippet
			}
		default:
			c.Status = model.StatusNotMet
			c.Message = MsgContentMismatch
		}
		out = append(out, c)
	}
	return out
}

func evalContentRule(ctx context.Context, r rules.ContentRule, doc scripting.TextView, text string, scripts ScriptFactory) (bool, string, error) {
	switch r.Type {
	case rules.TypeRegex:
		re, err := regexp.Compile("(?im)" + r.Pattern)
		if err != nil {
			return false, "", fmt.Errorf("invalid pattern: %w", err)
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			return false, "", nil
		}
		return true, clip(strings.TrimSpace(text[loc[0]:loc[1]])), nil
	case rules.TypeContains:
		if strings.TrimSpace(r.Contains) == "" {
			return false, "", fmt.Errorf("empty contains value")
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(r.Contains)), "", nil
	case rules.TypeScript:
		engine := scripts()
		if err := engine.RegisterDocument(doc); err != nil {
			return false, "", fmt.Errorf("script setup: %w", err)
		}
		if ctx == nil {
			ctx = context.Background()
		}
		sctx, cancel := context.WithTimeout(ctx, ScriptTimeout)
		defer cancel()
		ok, err := engine.Truthy(sctx, r.Script)
		if err != nil {
			return false, "", fmt.Errorf("script: %w", err)
		}
		return ok, "", nil
	}
	return false, "", fmt.Errorf("unknown rule type %q", r.Type)
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxMatchLen {
		return s
	}
	return string(r[:maxMatchLen])
}
