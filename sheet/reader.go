package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Reader loads the first worksheet of a spreadsheet export.
type Reader interface {
	Read(path string) (*Table, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(path string) (*Table, error)

func (f ReaderFunc) Read(path string) (*Table, error) { return f(path) }

// ExcelReader reads .xlsx workbooks.
type ExcelReader struct{}

// Read opens the workbook at path and returns its first sheet. The first row
// is the header.
func (ExcelReader) Read(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return NewTable(rows[0], rows[1:]), nil
}
