package core

import "time"

// Row is one line of the grid. Rows may have different lengths.
type Row []string

// Grid is the full input table, already resident in memory.
type Grid []Row

// Width returns the length of the longest row.
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// HeaderOffset is the zero-based index of the header row.
// A nil offset means the grid has no header and every row is data.
type HeaderOffset = *int

// Offset returns a HeaderOffset pointing at row i.
func Offset(i int) HeaderOffset {
	return &i
}

// NoHeader is the absent header offset.
var NoHeader HeaderOffset

// KeyedRow is a padded data row zipped against the header.
type KeyedRow struct {
	Line   int               // 1-based position of the row in the grid
	Header []string          // Header labels in column order; nil for positional rows
	Cells  Row               // The row, right-padded to the grid width
	Values map[string]string // Label (or positional index) -> cell
}

// Width returns the number of cells in the padded row.
func (r KeyedRow) Width() int {
	return len(r.Cells)
}

// Lookup returns the cell stored under key and whether the key exists.
func (r KeyedRow) Lookup(key string) (string, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Record is one output row keyed by ColumnSpec.Field.
type Record map[string]string

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ColumnSpec is the normalized description of one output field.
type ColumnSpec struct {
	Name     string // Source column label to look up
	Field    string // Output key in the record
	Autofill bool   // Carry the previous record's value into empty cells
	Default  string // Value used for empty cells without an autofill source
}

// Stats summarizes one Run.
type Stats struct {
	Rows     int           `json:"rows"`
	Issues   int           `json:"issues"`
	Duration time.Duration `json:"duration"`
}
