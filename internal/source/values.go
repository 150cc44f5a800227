package source

import (
	"errors"
	"strings"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/tidwall/gjson"
)

var errInvalidValues = errors.New("parse error: values must be a JSON array of rows")

// readValues reads a Sheets API ValueRange or a bare array of rows.
// A ValueRange without "values" is an empty range, not an error.
func readValues(data []byte) (core.Grid, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("parse error: invalid JSON")
	}

	root := gjson.ParseBytes(data)
	values := root
	columns := false
	if root.IsObject() {
		values = root.Get("values")
		columns = strings.EqualFold(root.Get("majorDimension").String(), "COLUMNS")
		if !values.Exists() {
			return core.Grid{}, nil
		}
	}
	if !values.IsArray() {
		return nil, errInvalidValues
	}

	grid := core.Grid{}
	values.ForEach(func(_, row gjson.Result) bool {
		cells := core.Row{}
		row.ForEach(func(_, cell gjson.Result) bool {
			cells = append(cells, cellString(cell))
			return true
		})
		grid = append(grid, cells)
		return true
	})

	if columns {
		grid = transpose(grid)
	}
	return grid, nil
}

func cellString(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.JSON:
		return v.Raw
	default:
		return v.String()
	}
}

func transpose(cols core.Grid) core.Grid {
	height := cols.Width()
	rows := make(core.Grid, height)
	for i := range rows {
		rows[i] = make(core.Row, len(cols))
		for j, col := range cols {
			if i < len(col) {
				rows[i][j] = col[i]
			}
		}
	}
	return rows
}
