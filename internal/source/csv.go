package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/JonMunkholm/gridmap/internal/core"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV reads delimited text into a ragged grid. A leading UTF-8 BOM is
// stripped and invalid UTF-8 is replaced with U+FFFD.
func readCSV(ctx context.Context, r io.Reader, comma rune) (core.Grid, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	grid := core.Grid{}
	for line := 0; ; line++ {
		if n := core.ContextCheckInterval; n > 0 && line%n == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		grid = append(grid, core.Row(rec))
	}
	return grid, nil
}
