// Package extractor pulls labeled values and yes/no answers out of document
// text that has no fixed layout. Every function is pure: the same text always
// yields the same result.
package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxValueLen caps values taken from free text.
const MaxValueLen = 200

var spaceRun = regexp.MustCompile(`[ \t]+`)

// Normalize applies NFKC, converts line endings to LF and collapses runs of
// spaces and tabs to a single space.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return spaceRun.ReplaceAllString(s, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func trimLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

func looksLikeLabel(line string, labels []string) bool {
	for _, l := range labels {
		if l != "" && containsFold(line, l) {
			return true
		}
	}
	return false
}

// ValueAfterLabels returns the value attached to the first line containing
// one of labels. The text after the last occurrence of the label on that
// line wins when non-empty; otherwise the next non-empty line within five
// lines that does not itself contain a label is returned. An empty string
// means no value was found.
func ValueAfterLabels(lines []string, labels []string) string {
	clean := trimLines(lines)
	for i, ln := range clean {
		for _, lab := range labels {
			if lab == "" || !containsFold(ln, lab) {
				continue
			}
			parts := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(lab)).Split(ln, -1)
			if len(parts) >= 2 {
				if v := strings.Trim(parts[len(parts)-1], " :\t"); v != "" {
					return v
				}
			}
			for j := i + 1; j < min(i+6, len(clean)); j++ {
				if clean[j] != "" && !looksLikeLabel(clean[j], labels) {
					return clean[j]
				}
			}
		}
	}
	return ""
}

// StackedValue handles labels wrapped over several lines. fragments must
// appear in order on consecutive lines; the first non-empty line within the
// six lines after the last fragment is returned.
func StackedValue(lines []string, fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	clean := trimLines(lines)
	for i := range clean {
		matched := true
		for k, frag := range fragments {
			if i+k >= len(clean) || !containsFold(clean[i+k], frag) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		start := i + len(fragments)
		for j := start; j < min(start+6, len(clean)); j++ {
			if clean[j] != "" {
				return clean[j]
			}
		}
	}
	return ""
}
