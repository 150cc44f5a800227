package source

import (
	"bytes"
	"errors"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads one worksheet. An empty sheet name selects the first sheet.
// Rows keep their sheet position: blank leading rows come back empty.
func readXLSX(data []byte, sheet string) (core.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	grid := make(core.Grid, len(rows))
	for i, row := range rows {
		grid[i] = core.Row(row)
	}
	return grid, nil
}
