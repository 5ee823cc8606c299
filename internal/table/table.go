package table

import (
	"fmt"
	"math"
	"strconv"
)

// Table is a header plus rows of string cells. Rows all have len(Header)
// cells; columns are addressed by name.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Append adds a row. The row must match the header width.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.Header) {
		return fmt.Errorf("table: row has %d cells, header has %d", len(row), len(t.Header))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Float parses the cell at (row, col) as a float64. An empty cell is NaN.
func (t *Table) Float(row, col int) (float64, error) {
	cell := t.Rows[row][col]
	if cell == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("table: column %q row %d: bad number %q", t.Header[col], row, cell)
	}
	return v, nil
}

// Int parses the cell at (row, col) as an int64.
func (t *Table) Int(row, col int) (int64, error) {
	cell := t.Rows[row][col]
	v, err := strconv.ParseInt(cell, 10, 64)
	if err != nil {
		// Simulator CSVs occasionally carry integer columns formatted as
		// floats (e.g. "600.0"); accept those too.
		f, ferr := strconv.ParseFloat(cell, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("table: column %q row %d: bad integer %q", t.Header[col], row, cell)
		}
		return int64(f), nil
	}
	return v, nil
}

// FormatFloat renders a derived numeric cell. NaN becomes the empty
// string so missing values survive a CSV round trip.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders a derived integer cell.
func FormatInt(v int64) string { return strconv.FormatInt(v, 10) }
