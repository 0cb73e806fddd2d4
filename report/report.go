// Package report renders a ReviewResult as JSON, Markdown and HTML, checks
// the JSON against the embedded schema and writes the run summary.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"

	"github.com/KPoloska/dac-agent/model"
)

// Output file names inside the output directory.
const (
	FileJSON       = "review_result.json"
	FileMarkdown   = "review_result.md"
	FileHTML       = "review_result.html"
	FileDebug      = "extract_debug.json"
	FileRunSummary = "run_summary.json"
)

const (
	maxEvidenceLen     = 600
	maxRecommendations = 200
)

// JSON returns the indented JSON form of the sanitized result.
func JSON(r *model.ReviewResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON encodes the sanitized result to w with two-space indentation.
func WriteJSON(w io.Writer, r *model.ReviewResult) error {
	return encodeIndented(w, r.Sanitized())
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Markdown renders the human-readable report. Evidence is shown as compact
// JSON cut at 600 characters and at most 200 recommendations are listed.
func Markdown(r *model.ReviewResult) string {
	r = r.Sanitized()
	var b strings.Builder
	b.WriteString("# DAC Review Result\n\n")
	fmt.Fprintf(&b, "- DAC: `%s`\n", r.DACFile)
	fmt.Fprintf(&b, "- Generated at: `%s`\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Overall: **%s**\n\n", r.OverallStatus)
	b.WriteString("## Sections\n\n")
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "### %s %s: **%s**\n\n", s.SectionID, s.Name, s.Status)
		for _, c := range s.Checks {
			fmt.Fprintf(&b, "- `%s` **%s** (%s) %s\n", c.CheckID, c.Status, c.Severity, c.Name)
			if c.Message != "" {
				fmt.Fprintf(&b, "  - %s\n", c.Message)
			}
			if len(c.Evidence) > 0 {
				fmt.Fprintf(&b, "  - evidence: `%s`\n", compactEvidence(c.Evidence))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		recs := r.Recommendations
		if len(recs) > maxRecommendations {
			recs = recs[:maxRecommendations]
		}
		for _, rec := range recs {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func compactEvidence(ev model.Evidence) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return fmt.Sprintf("%v", map[string]any(ev))
	}
	s := strings.TrimSpace(buf.String())
	if utf8.RuneCountInString(s) > maxEvidenceLen {
		s = string([]rune(s)[:maxEvidenceLen]) + "…"
	}
	return strings.ReplaceAll(s, "`", "'")
}

// HTML renders the Markdown report as a standalone HTML page.
func HTML(r *model.ReviewResult) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buf.WriteString(html.EscapeString("DAC Review Result: " + r.DACFile))
	buf.WriteString("</title>\n</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// Files lists the paths written by Write.
type Files struct {
	JSON     string `json:"review_result_json"`
	Markdown string `json:"review_result_md"`
	HTML     string `json:"review_result_html"`
	Debug    string `json:"extract_debug_json,omitempty"`
}

// Write creates dir and writes the JSON, Markdown and HTML reports. When
// the result carries extraction debug events they are also written to
// extract_debug.json.
func Write(dir string, r *model.ReviewResult) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}
	files := Files{
		JSON:     filepath.Join(dir, FileJSON),
		Markdown: filepath.Join(dir, FileMarkdown),
		HTML:     filepath.Join(dir, FileHTML),
	}
	data, err := JSON(r)
	if err != nil {
		return Files{}, err
	}
	if err := os.WriteFile(files.JSON, data, 0o644); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", FileJSON, err)
	}
	if err := os.WriteFile(files.Markdown, []byte(Markdown(r)), 0o644); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", FileMarkdown, err)
	}
	page, err := HTML(r)
	if err != nil {
		return Files{}, err
	}
	if err := os.WriteFile(files.HTML, page, 0o644); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", FileHTML, err)
	}
	if events, ok := r.Stats["extract_debug_events"]; ok {
		var buf bytes.Buffer
		if err := encodeIndented(&buf, model.Sanitize(events)); err != nil {
			return Files{}, err
		}
		files.Debug = filepath.Join(dir, FileDebug)
		if err := os.WriteFile(files.Debug, buf.Bytes(), 0o644); err != nil {
			return Files{}, fmt.Errorf("write %s: %w", FileDebug, err)
		}
	}
	return files, nil
}
