// Package sheet reads tabular evidence exports and evaluates row-level
// checks over them.
package sheet

import (
	"errors"
	"strings"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// Table is the first worksheet of an export: a header row and data rows.
// Cells are kept as text; an empty string is a missing value.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether col is a column of t.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Missing returns the columns of cols that t lacks, in the given order.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Present returns the columns of cols that t has, in the given order.
func (t *Table) Present(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Cell returns the value of col in row, or "" when either is absent.
func (t *Table) Cell(row int, col string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	i := t.Index(col)
	if i < 0 || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

func (t *Table) filled(row int, col string) bool {
	return strings.TrimSpace(t.Cell(row, col)) != ""
}

// Record returns row as a column to value map restricted to cols. Empty
// cells map to nil.
func (t *Table) Record(row int, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if v := t.Cell(row, c); v != "" {
			out[c] = v
		} else {
			out[c] = nil
		}
	}
	return out
}

// NewTable builds a table from a header row and data rows. Header names are
// trimmed and short rows are padded. Blank rows between data rows are kept
// as all-empty records; only trailing blank rows are dropped.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}
	end := len(rows)
	for end > 0 && blankRow(rows[end-1]) {
		end--
	}
	for _, r := range rows[:end] {
		row := make([]string, max(len(header), len(r)))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
