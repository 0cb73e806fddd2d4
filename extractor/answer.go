package extractor

import (
	"regexp"
	"strings"
)

// Answer is a normalized yes/no value. The zero value means no answer.
type Answer string

const (
	AnswerNone Answer = ""
	AnswerYes  Answer = "yes"
	AnswerNo   Answer = "no"
)

// Known reports whether a is yes or no.
func (a Answer) Known() bool { return a == AnswerYes || a == AnswerNo }

// DefaultWindow is the number of characters YesNoNear inspects after a
// label match.
const DefaultWindow = 250

var yesNoToken = regexp.MustCompile(`(?i)\b(yes|no|y|n)\b`)

// YesNo reads a yes/no answer from s, tolerating OCR noise: surrounding
// punctuation is stripped and a standalone y/yes/n/no token inside a longer
// string is accepted.
func YesNo(s string) Answer {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AnswerNone
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t\n\r:;,.|[](){}")

	switch s {
	case "y", "yes":
		return AnswerYes
	case "n", "no":
		return AnswerNo
	}
	m := yesNoToken.FindStringSubmatch(s)
	if m == nil {
		return AnswerNone
	}
	switch m[1] {
	case "yes", "y":
		return AnswerYes
	default:
		return AnswerNo
	}
}

// YesNoNear searches the text following each match of patterns for a yes/no
// answer. Only the window characters after the match end are inspected, so
// an answer that precedes the question is never picked up. Patterns are
// matched case-insensitively; invalid patterns are ignored.
func YesNoNear(text string, patterns []string, window int) Answer {
	if text == "" {
		return AnswerNone
	}
	if window <= 0 {
		window = DefaultWindow
	}
	t := Normalize(text)
	for _, pat := range patterns {
		re, err := regexp.Compile(`(?i)` + pat)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(t, -1) {
			if a := YesNo(runePrefix(t[loc[1]:], window)); a.Known() {
				return a
			}
		}
	}
	return AnswerNone
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
