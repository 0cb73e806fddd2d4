package sheet

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func entitlementTable() *Table {
	return NewTable(
		[]string{"Display name", " Description ", "SoD Area", "Tier Level", "Functional Area"},
		[][]string{
			{"ENT_A", "Grants read access to ledgers", "FIN", "2", "Finance"},
			{"ENT_B", "tbd", "FIN", "", ""},
			{"", "", "", ""},
			{"ENT_C", "ENT_C", "", "1"},
			{"ENT_D", "Approves payment batches", "PAY", "3"},
		},
	)
}

func TestNewTableKeepsInteriorBlankRowsAndPads(t *testing.T) {
	tbl := entitlementTable()
	if tbl.Len() != 5 {
		t.Fatalf("Len() = %d", tbl.Len())
	}
	if !tbl.Has("Description") {
		t.Fatalf("header should be trimmed: %#v", tbl.Columns)
	}
	if got := tbl.Cell(2, "Display name"); got != "" {
		t.Fatalf("blank row cell = %q", got)
	}
	if got := tbl.Cell(3, "Functional Area"); got != "" || len(tbl.Rows[3]) != 5 {
		t.Fatalf("padded cell = %q, row = %#v", got, tbl.Rows[3])
	}
	if got := tbl.Cell(99, "Display name"); got != "" {
		t.Fatalf("out of range cell = %q", got)
	}
	if got := tbl.Missing("Display name", "Owner", "Tier Level", "X"); !reflect.DeepEqual(got, []string{"Owner", "X"}) {
		t.Fatalf("Missing() = %v", got)
	}
}

func TestRequiredNonEmpty(t *testing.T) {
	f := RequiredNonEmpty(entitlementTable(), []string{"Display name", "Description", "SoD Area", "Tier Level"}, "Display name", 5)
	if f.TotalRows != 5 || f.FailingRows != 3 {
		t.Fatalf("unexpected finding: %+v", f)
	}
	want := map[string]any{"Display name": "ENT_B", "Description": "tbd", "SoD Area": "FIN", "Tier Level": nil}
	if !reflect.DeepEqual(f.Samples[0], want) {
		t.Fatalf("sample = %#v", f.Samples[0])
	}
}

func TestBlankMiddleRowCountsAsFailing(t *testing.T) {
	tbl := NewTable([]string{"ID", "Name"}, [][]string{{"1", "Grants ledger read"}, {"", ""}, {"3", "Approves payments"}, {" ", ""}, {}})
	if tbl.Len() != 3 {
		t.Fatalf("trailing blank rows should be trimmed, Len() = %d", tbl.Len())
	}
	f := RequiredNonEmpty(tbl, []string{"ID", "Name"}, "ID", 5)
	if f.TotalRows != 3 || f.FailingRows != 1 {
		t.Fatalf("unexpected finding: %+v", f)
	}
	want := map[string]any{"ID": nil, "Name": nil}
	if !reflect.DeepEqual(f.Samples[0], want) {
		t.Fatalf("sample = %#v", f.Samples[0])
	}
	d := MeaningfulDescriptions(tbl, "ID", "Name", 5)
	if d.TotalRows != 3 || d.FailingRows != 1 || d.Samples[0]["ID"] != nil {
		t.Fatalf("unexpected description finding: %+v", d)
	}
}

func TestRequiredNonEmptyMissingColumnFailsAllRows(t *testing.T) {
	tbl := NewTable([]string{"Display name", "Description"}, [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}})
	f := RequiredNonEmpty(tbl, []string{"Display name", "Tier Level"}, "Display name", 5)
	if f.FailingRows != f.TotalRows || f.TotalRows != 3 {
		t.Fatalf("missing column must fail all rows: %+v", f)
	}
	if f.Samples[0]["error"] != "Missing columns: ['Tier Level']" {
		t.Fatalf("unexpected sample: %#v", f.Samples)
	}
}

func TestRequiredNonEmptyCapsSamples(t *testing.T) {
	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"x", ""}
	}
	f := RequiredNonEmpty(NewTable([]string{"Display name", "Description"}, rows), []string{"Description"}, "Display name", 0)
	if f.FailingRows != 12 || len(f.Samples) != DefaultMaxSamples {
		t.Fatalf("unexpected finding: %d failing, %d samples", f.FailingRows, len(f.Samples))
	}
}

func TestIsMeaningful(t *testing.T) {
	cases := []struct {
		desc, display string
		want          bool
	}{
		{"Grants read access", "ENT_A", true},
		{"", "ENT_A", false},
		{"  short ", "x", false},
		{"Payments Admin", "payments admin", false},
		{"Payments Admin", "", true},
		{"tbd", "", false},
	}
	for _, tc := range cases {
		if got := IsMeaningful(tc.desc, tc.display); got != tc.want {
			t.Fatalf("IsMeaningful(%q, %q) = %v", tc.desc, tc.display, got)
		}
	}
}

func TestMeaningfulDescriptions(t *testing.T) {
	f := MeaningfulDescriptions(entitlementTable(), "Display name", "Description", 5)
	if f.TotalRows != 5 || f.FailingRows != 3 {
		t.Fatalf("unexpected finding: %+v", f)
	}
	if f.Samples[1]["Display name"] != nil || f.Samples[2]["Display name"] != "ENT_C" {
		t.Fatalf("unexpected samples: %#v", f.Samples)
	}
	missing := MeaningfulDescriptions(NewTable([]string{"Name"}, [][]string{{"a"}}), "Display name", "Description", 5)
	if missing.FailingRows != 1 || missing.Samples[0]["error"] != "Missing columns: ['Display name', 'Description']" {
		t.Fatalf("unexpected missing finding: %+v", missing)
	}
}

func TestOwnerFallback(t *testing.T) {
	tbl := NewTable(
		[]string{"Display name", "Description", "Tier Level", "cust_owner", "Application Owner"},
		[][]string{
			{"R1", "Role one", "1", "alice", ""},
			{"R2", "Role two", "1", "", "bob"},
			{"R3", "Role three", "2", "", ""},
			{"R4", "", "2", "carol", ""},
		},
	)
	base := []string{"Display name", "Description", "Tier Level"}
	owners := []string{"IT Role Owner", "cust_owner", "Application Owner"}
	f, used := OwnerFallback(tbl, base, owners, 5)
	if !reflect.DeepEqual(used, []string{"cust_owner", "Application Owner"}) {
		t.Fatalf("owner columns = %v", used)
	}
	if f.FailingRows != 2 || f.Samples[0]["Display name"] != "R3" {
		t.Fatalf("unexpected finding: %+v", f)
	}

	noOwners := NewTable(base, [][]string{{"R1", "Role one", "1"}})
	f, used = OwnerFallback(noOwners, base, owners, 5)
	if f.FailingRows != 0 || len(used) != 0 || used == nil {
		t.Fatalf("owner requirement should hold vacuously: %+v %v", f, used)
	}
}

func TestNonEmptyCount(t *testing.T) {
	n, ok := NonEmptyCount(entitlementTable(), "Functional Area")
	if !ok || n != 1 {
		t.Fatalf("NonEmptyCount() = %d, %v", n, ok)
	}
	if _, ok := NonEmptyCount(entitlementTable(), "DBG Functional Area"); ok {
		t.Fatalf("expected missing column")
	}
}

func TestExcelReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Entitlement Services.xlsx")
	wb := excelize.NewFile()
	rows := [][]any{
		{"Display name", "Description", "Tier Level"},
		{"ENT_A", "Grants read access", 2},
		{},
		{"ENT_B", "", nil},
	}
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := r
		if err := wb.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}

	tbl, err := ExcelReader{}.Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"Display name", "Description", "Tier Level"}) {
		t.Fatalf("columns = %v", tbl.Columns)
	}
	if tbl.Len() != 3 || tbl.Cell(0, "Tier Level") != "2" || tbl.Cell(1, "Display name") != "" || tbl.Cell(2, "Display name") != "ENT_B" {
		t.Fatalf("unexpected rows: %#v", tbl.Rows)
	}
}

func TestExcelReaderRejectsGarbage(t *testing.T) {
	if _, err := (ExcelReader{}).Read(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
	fake := ReaderFunc(func(string) (*Table, error) { return nil, ErrNoSheets })
	if _, err := fake.Read("x"); !errors.Is(err, ErrNoSheets) {
		t.Fatalf("unexpected error: %v", err)
	}
}
