package extractor

import (
	"regexp"
	"strings"
)

var (
	cmsProductIDRe  = regexp.MustCompile(`(?i)\bCMS\s*Product\s*ID\b[^0-9]{0,40}(\d{4,})`)
	itAssetIDRe     = regexp.MustCompile(`(?i)\bIT\s*Asset\s*ID\b[^A-Za-z0-9]{0,40}([A-Za-z0-9_-]{2,})`)
	itAssetNameLine = regexp.MustCompile(`(?im)^\s*IT\s*Asset\s*Name\b\s*:?\s*(.+?)\s*$`)
	itAssetNameAny  = regexp.MustCompile(`(?i)\bIT\s*Asset\s*Name\b\s*:?\s*([A-Za-z0-9 _\-/().]{3,200})`)
	otherIDLabel    = regexp.MustCompile(`(?i)\bCMS\s*Product\s*ID\b|\bIT\s*Asset\s*ID\b`)
)

// CMSProductID finds a numeric CMS product id of at least four digits.
func CMSProductID(text string) string {
	if text == "" {
		return ""
	}
	if m := cmsProductIDRe.FindStringSubmatch(Normalize(text)); m != nil {
		return m[1]
	}
	return ""
}

// ITAssetID finds an alphanumeric IT asset id.
func ITAssetID(text string) string {
	if text == "" {
		return ""
	}
	if m := itAssetIDRe.FindStringSubmatch(Normalize(text)); m != nil {
		return m[1]
	}
	return ""
}

// ITAssetName finds the IT asset name, first as the rest of a line starting
// with the label and then anywhere in the text. Candidates that swallowed a
// neighbouring id label are rejected.
func ITAssetName(text string) string {
	if text == "" {
		return ""
	}
	t := Normalize(text)
	for _, re := range []*regexp.Regexp{itAssetNameLine, itAssetNameAny} {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v != "" && !otherIDLabel.MatchString(v) {
			return truncate(v, MaxValueLen)
		}
	}
	return ""
}

// ValueFromText is the generic label fallback over a whole text blob. Each
// label is tried as "label: value" on a single line, then as a label line
// followed by a value within five lines. Values that start with one of the
// labels are skipped.
func ValueFromText(text string, labels []string) string {
	if text == "" {
		return ""
	}
	lines := trimLines(strings.Split(Normalize(text), "\n"))
	bare := make([]string, len(labels))
	for i, l := range labels {
		bare[i] = strings.TrimRight(l, ":")
	}
	startsWithLabel := func(v string) bool {
		for _, l := range bare {
			if l != "" && hasPrefixFold(v, l) {
				return true
			}
		}
		return false
	}

	for _, lab := range bare {
		if lab == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lab) + `\b\s*:?\s*(.+)$`)
		for _, ln := range lines {
			m := re.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			if v := strings.TrimSpace(m[1]); v != "" && !startsWithLabel(v) {
				return truncate(v, MaxValueLen)
			}
		}
	}
	for i, ln := range lines {
		for _, lab := range bare {
			if lab == "" || !containsFold(ln, lab) {
				continue
			}
			for j := i + 1; j < min(i+6, len(lines)); j++ {
				if v := lines[j]; v != "" && !startsWithLabel(v) {
					return truncate(v, MaxValueLen)
				}
			}
		}
	}
	return ""
}
