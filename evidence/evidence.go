// Package evidence locates the spreadsheet exports a DAC refers to inside an
// evidence directory.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	quotedXLSX   = regexp.MustCompile(`(?i)\(\s*"([^"]+?\.xlsx)"\s*\)`)
	bareXLSX     = regexp.MustCompile(`(?i)([A-Za-z0-9_\-. ]{3,240}\.xlsx)`)
	caseFolder   = cases.Fold()
	xlsxSuffixLC = ".xlsx"
)

// ReferencedSpreadsheets lists the .xlsx file names mentioned in text. Line
// wrapping is undone first; quoted ("name.xlsx") references come before bare
// ones. Names are reduced to their base name and de-duplicated
// case-insensitively in first-seen order.
func ReferencedSpreadsheets(text string) []string {
	if text == "" {
		return nil
	}
	text = whitespace.ReplaceAllString(text, " ")

	var out []string
	seen := map[string]bool{}
	add := func(raw string) {
		name := strings.TrimSpace(whitespace.ReplaceAllString(baseName(raw), " "))
		if !strings.HasSuffix(strings.ToLower(name), xlsxSuffixLC) {
			return
		}
		key := caseFolder.String(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, name)
	}
	for _, m := range quotedXLSX.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range bareXLSX.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func hasSuffixFold(name, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix))
}

// IsReferenced reports whether any referenced name ends with suffix,
// case-insensitively.
func IsReferenced(referenced []string, suffix string) bool {
	for _, r := range referenced {
		if hasSuffixFold(r, suffix) {
			return true
		}
	}
	return false
}

// FindExport returns the path of the export matching suffix. A referenced
// name that ends with suffix and exists in dir wins; otherwise the first
// file in dir, in name order, whose name ends with suffix is used. An empty
// string means no export was found.
func FindExport(dir string, referenced []string, suffix string) string {
	for _, r := range referenced {
		if !hasSuffixFold(r, suffix) {
			continue
		}
		p := filepath.Join(dir, r)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	names, err := ListFiles(dir)
	if err != nil {
		return ""
	}
	for _, n := range names {
		if hasSuffixFold(n, suffix) {
			return filepath.Join(dir, n)
		}
	}
	return ""
}

// ListFiles returns the names of the regular files directly inside dir,
// sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list evidence dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// FileListDigest returns the files of dir sorted case-insensitively and the
// SHA-256 of their newline-joined names.
func FileListDigest(dir string) ([]string, string, error) {
	names, err := ListFiles(dir)
	if err != nil {
		return nil, "", err
	}
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return names, hex.EncodeToString(sum[:]), nil
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
