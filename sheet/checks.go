package sheet

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSamples bounds the failing rows kept in a Finding.
const DefaultMaxSamples = 5

// MinDescriptionLen is the shortest description considered meaningful.
const MinDescriptionLen = 8

var placeholders = map[string]bool{"...": true, "tbd": true, "n/a": true, "na": true}

// Finding summarizes a row-level check over a table.
type Finding struct {
	TotalRows   int
	FailingRows int
	Samples     []map[string]any
}

func missingFinding(t *Table, missing []string) Finding {
	return Finding{
		TotalRows:   t.Len(),
		FailingRows: t.Len(),
		Samples:     []map[string]any{{"error": fmt.Sprintf("Missing columns: %s", FormatColumns(missing))}},
	}
}

// FormatColumns renders names as ['a', 'b'].
func FormatColumns(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sampleLimit(n int) int {
	if n <= 0 {
		return DefaultMaxSamples
	}
	return n
}

func uniq(cols []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range cols {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// RequiredNonEmpty fails every row where any required column is blank. When
// a required column is absent all rows fail and the single sample names the
// missing columns. Samples carry idCol followed by the required columns.
func RequiredNonEmpty(t *Table, required []string, idCol string, maxSamples int) Finding {
	if missing := t.Missing(required...); len(missing) > 0 {
		return missingFinding(t, missing)
	}
	cols := t.Present(uniq(append([]string{idCol}, required...))...)
	f := Finding{TotalRows: t.Len()}
	for r := range t.Rows {
		ok := true
		for _, c := range required {
			if !t.filled(r, c) {
				ok = false
				break
			}
		}
		if ok {
			continue
		}
		f.FailingRows++
		if len(f.Samples) < sampleLimit(maxSamples) {
			f.Samples = append(f.Samples, t.Record(r, cols))
		}
	}
	return f
}

// IsMeaningful reports whether desc is a real description: at least
// MinDescriptionLen characters after trimming, not a placeholder and not a
// copy of the display name.
func IsMeaningful(desc, display string) bool {
	d := strings.TrimSpace(desc)
	if d == "" || utf8.RuneCountInString(d) < MinDescriptionLen {
		return false
	}
	if dn := strings.TrimSpace(display); dn != "" && strings.EqualFold(d, dn) {
		return false
	}
	return !placeholders[strings.ToLower(d)]
}

// MeaningfulDescriptions fails rows whose descCol value is not meaningful
// relative to displayCol.
func MeaningfulDescriptions(t *Table, displayCol, descCol string, maxSamples int) Finding {
	if missing := t.Missing(displayCol, descCol); len(missing) > 0 {
		return missingFinding(t, missing)
	}
	f := Finding{TotalRows: t.Len()}
	for r := range t.Rows {
		if IsMeaningful(t.Cell(r, descCol), t.Cell(r, displayCol)) {
			continue
		}
		f.FailingRows++
		if len(f.Samples) < sampleLimit(maxSamples) {
			f.Samples = append(f.Samples, t.Record(r, []string{displayCol, descCol}))
		}
	}
	return f
}

// OwnerFallback requires every base column and, when any owner column
// exists, at least one non-empty owner value per row. It returns the owner
// columns that were found; with none found the owner requirement holds
// trivially.
func OwnerFallback(t *Table, base, owners []string, maxSamples int) (Finding, []string) {
	used := t.Present(owners...)
	if missing := t.Missing(base...); len(missing) > 0 {
		return missingFinding(t, missing), used
	}
	cols := append(append([]string{}, base...), used...)
	f := Finding{TotalRows: t.Len()}
	for r := range t.Rows {
		ok := true
		for _, c := range base {
			if !t.filled(r, c) {
				ok = false
				break
			}
		}
		if ok && len(used) > 0 {
			anyOwner := false
			for _, c := range used {
				if t.filled(r, c) {
					anyOwner = true
					break
				}
			}
			ok = anyOwner
		}
		if ok {
			continue
		}
		f.FailingRows++
		if len(f.Samples) < sampleLimit(maxSamples) {
			f.Samples = append(f.Samples, t.Record(r, cols))
		}
	}
	if used == nil {
		used = []string{}
	}
	return f, used
}

// NonEmptyCount counts rows with a non-blank value in col. ok is false when
// the column does not exist.
func NonEmptyCount(t *Table, col string) (n int, ok bool) {
	if !t.Has(col) {
		return 0, false
	}
	for r := range t.Rows {
		if t.filled(r, col) {
			n++
		}
	}
	return n, true
}
