package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/xuri/excelize/v2"
)

// ErrInvalidRange is returned for malformed A1 ranges.
var ErrInvalidRange = errors.New("invalid range")

// Range is a parsed A1 range. Coordinates are 1-based; zero means open.
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses A1 notation: "A1:D20", "B:D", "2:5", "A2:C", "C3",
// optionally prefixed by a sheet ("Sheet1!A1:B2", "'My Sheet'!A:B").
// A bare sheet name selects the whole sheet.
func ParseRange(s string) (Range, error) {
	var r Range
	s = strings.TrimSpace(s)
	if s == "" {
		return r, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	ref := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.Sheet = unquoteSheet(s[:i])
		ref = s[i+1:]
		if r.Sheet == "" {
			return r, fmt.Errorf("%w: %q: empty sheet name", ErrInvalidRange, s)
		}
	} else if !strings.Contains(s, ":") {
		if _, _, err := parseRef(s); err != nil {
			// Not a cell reference, so it names a sheet.
			r.Sheet = unquoteSheet(s)
			return r, nil
		}
	}
	if ref == "" {
		return r, nil
	}

	start, end, found := strings.Cut(ref, ":")
	var err error
	if r.StartCol, r.StartRow, err = parseRef(start); err != nil {
		return r, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	if !found {
		if r.StartCol == 0 || r.StartRow == 0 {
			return r, fmt.Errorf("%w: %q: single reference must be a cell", ErrInvalidRange, s)
		}
		r.EndCol, r.EndRow = r.StartCol, r.StartRow
		return r, nil
	}
	if r.EndCol, r.EndRow, err = parseRef(end); err != nil {
		return r, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}

	if r.EndCol != 0 && r.StartCol > r.EndCol {
		r.StartCol, r.EndCol = r.EndCol, r.StartCol
	}
	if r.EndRow != 0 && r.StartRow > r.EndRow {
		r.StartRow, r.EndRow = r.EndRow, r.StartRow
	}
	return r, nil
}

// parseRef splits "AB12" into column and row. Either part may be missing.
func parseRef(ref string) (col, row int, err error) {
	ref = strings.ReplaceAll(strings.ToUpper(ref), "$", "")
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	letters, digits := ref[:i], ref[i:]
	if letters == "" && digits == "" {
		return 0, 0, errors.New("empty reference")
	}

	if letters != "" && digits != "" {
		return excelize.CellNameToCoordinates(ref)
	}
	if letters != "" {
		col, err = excelize.ColumnNameToNumber(letters)
		return col, 0, err
	}
	row, err = strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row %q", digits)
	}
	return 0, row, nil
}

func unquoteSheet(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// Crop returns the part of grid inside r. The grid is taken to start at A1.
// Rows shorter than the range stay short.
func (r Range) Crop(grid core.Grid) core.Grid {
	startRow := max(r.StartRow, 1)
	endRow := len(grid)
	if r.EndRow != 0 && r.EndRow < endRow {
		endRow = r.EndRow
	}
	if startRow > endRow {
		return core.Grid{}
	}

	out := make(core.Grid, 0, endRow-startRow+1)
	for _, row := range grid[startRow-1 : endRow] {
		startCol := max(r.StartCol, 1)
		endCol := len(row)
		if r.EndCol != 0 && r.EndCol < endCol {
			endCol = r.EndCol
		}
		if startCol > endCol {
			out = append(out, core.Row{})
			continue
		}
		out = append(out, append(core.Row(nil), row[startCol-1:endCol]...))
	}
	return out
}
