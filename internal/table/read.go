package table

// read.go loads CSV and XLSX documents into a Table.
//
// Loading follows the conventions spreadsheet users expect:
//  1. Rows above HeaderRow are ignored (titles, notes, logos)
//  2. The header row supplies column names; unnamed columns are dropped
//  3. Repeated header names are suffixed ".1", ".2", ... skipping any suffix
//     already used by another header
//  4. Fully blank data rows are dropped without renumbering the others
//  5. Empty cells become nil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/textnorm"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile is returned when the document has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrSheetNotFound is returned when no workbook sheet matches the search term.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrUnsupportedFormat is returned by Read for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ReadOptions controls how a document is turned into a Table.
type ReadOptions struct {
	// HeaderRow is the 0-based row holding the column names.
	HeaderRow int

	// Sheet selects the workbook sheet (XLSX only). A workbook with a single
	// sheet ignores it; otherwise the first sheet whose folded name contains
	// the folded search term is used. Empty selects the first sheet.
	Sheet string

	// Comma is the CSV field delimiter (default ',').
	Comma rune
}

// Read dispatches on the file extension of name.
func Read(name string, r io.Reader, opts ReadOptions) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	case ".csv", ".txt", "":
		return ReadCSV(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCSV loads a CSV document.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(wrapInput(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	records, err := cr.ReadAll()
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return fromRecords(records, opts.HeaderRow)
}

// ReadXLSX loads one sheet of an Excel workbook.
func ReadXLSX(r io.Reader, opts ReadOptions) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := findSheet(f.GetSheetList(), opts.Sheet)
	if err != nil {
		return nil, err
	}

	// Raw values keep dates and times as serial numbers instead of the
	// workbook's display format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows, opts.HeaderRow)
}

// findSheet picks the sheet to load. A lone sheet always wins.
func findSheet(names []string, search string) (string, error) {
	if len(names) == 0 {
		return "", ErrEmptyFile
	}
	if len(names) == 1 || strings.TrimSpace(search) == "" {
		return names[0], nil
	}

	for _, name := range names {
		if textnorm.Contains(name, search) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, search, strings.Join(names, ", "))
}

// fromRecords builds a Table from raw rows.
func fromRecords(records [][]string, headerRow int) (*Table, error) {
	if headerRow < 0 {
		return nil, fmt.Errorf("header row must be non-negative, got %d", headerRow)
	}
	if len(records) <= headerRow {
		return nil, fmt.Errorf("%w: no header at row %d", ErrEmptyFile, headerRow)
	}

	type source struct {
		name string
		pos  int
	}

	var cols []source
	seen := make(map[string]bool)
	taken := func(n string) bool { return seen[n] }
	for pos, h := range records[headerRow] {
		name := CleanCell(h)
		if name == "" {
			continue
		}
		name = uniqueName(name, taken)
		seen[name] = true
		cols = append(cols, source{name: name, pos: pos})
	}

	t := &Table{colIdx: make(map[string]int, len(cols))}
	for i, c := range cols {
		t.colIdx[c.name] = i
		t.columns = append(t.columns, c.name)
	}

	data := records[headerRow+1:]
	t.rows = make([]Row, 0, len(data))
	for i, rec := range data {
		cells := make([]any, len(cols))
		blank := true
		for j, c := range cols {
			if c.pos >= len(rec) {
				continue
			}
			if v := cellValue(rec[c.pos]); v != nil {
				cells[j] = v
				blank = false
			}
		}
		if blank {
			continue
		}
		t.rows = append(t.rows, Row{Index: i, Cells: cells})
	}

	return t, nil
}

func cellValue(raw string) any {
	s := CleanCell(raw)
	if s == "" {
		return nil
	}
	return s
}

// CleanCell removes common spreadsheet export artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
