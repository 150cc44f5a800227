package core

import (
	"iter"
	"strconv"
)

// NormalizeGrid pads every row of grid to the grid width and yields the data
// rows keyed by the header row at offset.
//
// Rows before the header are dropped and the header row itself is never
// yielded. With a nil offset every row is data and is keyed by its column
// index ("0", "1", ...). When the header has the same label twice the last
// column wins.
//
// An empty grid reports an EmptyInputError and an offset past the last row
// reports a HeaderOutOfRangeError; in both cases nothing is yielded. Rows are
// built on demand, and ranging over the result again starts from the top.
func NormalizeGrid(grid Grid, offset HeaderOffset, report Reporter) iter.Seq[KeyedRow] {
	if report == nil {
		report = Discard
	}

	return func(yield func(KeyedRow) bool) {
		if len(grid) == 0 {
			report.Report(&EmptyInputError{})
			return
		}
		if offset != nil && (*offset < 0 || *offset >= len(grid)) {
			report.Report(&HeaderOutOfRangeError{Offset: *offset, Rows: len(grid)})
			return
		}

		width := grid.Width()
		var header []string

		for i, raw := range grid {
			row := padRow(raw, width)

			if offset != nil && i <= *offset {
				if i == *offset {
					header = row
				}
				continue
			}

			if !yield(keyRow(i+1, header, row)) {
				return
			}
		}
	}
}

// padRow returns row right-padded with empty cells to width.
// Rows already at or above width are returned unchanged.
func padRow(row Row, width int) Row {
	if len(row) >= width {
		return row
	}
	padded := make(Row, width)
	copy(padded, row)
	return padded
}

// keyRow zips header with row. A nil header keys cells by position.
func keyRow(line int, header []string, row Row) KeyedRow {
	values := make(map[string]string, len(row))
	if header == nil {
		for i, cell := range row {
			values[strconv.Itoa(i)] = cell
		}
	} else {
		for i, label := range header {
			values[label] = row[i]
		}
	}

	return KeyedRow{
		Line:   line,
		Header: header,
		Cells:  row,
		Values: values,
	}
}
