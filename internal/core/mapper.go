package core

import "iter"

// IsEmpty reports whether a cell counts as empty for default and autofill
// purposes. Only the zero-length string is empty; "0" and whitespace are values.
func IsEmpty(cell string) bool {
	return cell == ""
}

// MapColumns builds one Record per keyed row by resolving every spec in
// declaration order.
//
// A spec whose Name is missing from a row is reported as a MissingColumnError
// and left out of that row's record. Empty cells resolve to the previous
// record's value when the spec autofills and that value exists, otherwise to
// the spec default.
//
// The previous record is tracked per range over the returned sequence and is
// replaced wholesale by each new record.
func MapColumns(rows iter.Seq[KeyedRow], specs []ColumnSpec, report Reporter) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, rec := range mapRows(rows, specs, report) {
			if !yield(rec) {
				return
			}
		}
	}
}

// mapRows is MapColumns keyed by the source line of each record.
func mapRows(rows iter.Seq[KeyedRow], specs []ColumnSpec, report Reporter) iter.Seq2[int, Record] {
	if report == nil {
		report = Discard
	}

	return func(yield func(int, Record) bool) {
		var last Record

		for row := range rows {
			rec := make(Record, len(specs))

			for _, spec := range specs {
				value, ok := row.Lookup(spec.Name)
				if !ok {
					report.Report(&MissingColumnError{Column: spec.Name, Line: row.Line})
					continue
				}
				rec[spec.Field] = resolve(value, spec, last)
			}

			last = rec
			if !yield(row.Line, rec.Clone()) {
				return
			}
		}
	}
}

// resolve applies the empty-value policy of spec to value.
func resolve(value string, spec ColumnSpec, last Record) string {
	if !IsEmpty(value) {
		return value
	}
	if spec.Autofill {
		if prev, ok := last[spec.Field]; ok {
			return prev
		}
	}
	return spec.Default
}
