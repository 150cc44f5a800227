// Package source loads grids from files and uploads.
//
// A source is the collaborator that fetches a sheet and hands the transform a
// fully materialized core.Grid. Supported formats:
//
//   - csv / tsv: ragged rows, UTF-8 BOM stripped, invalid bytes replaced
//   - xlsx: one worksheet read with excelize
//   - json: a Sheets API ValueRange ({"range": ..., "values": [[...]]}) or a bare 2-D array
//
// An optional A1 range crops the loaded grid.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/gabriel-vasile/mimetype"
)

// Format names a grid encoding.
type Format string

const (
	FormatDetect Format = ""
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatXLSX   Format = "xlsx"
	FormatJSON   Format = "json"
)

// ErrUnsupportedFormat is returned when a format is unknown or cannot be detected.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Spec describes where a grid comes from.
type Spec struct {
	Path   string `yaml:"path" json:"path,omitempty"`
	Format Format `yaml:"format,omitempty" json:"format,omitempty"`
	Sheet  string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Range  string `yaml:"range,omitempty" json:"range,omitempty"`
}

// ReadError wraps a failure to load a grid with the source it came from.
type ReadError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ReadError) Error() string {
	name := e.Path
	if name == "" {
		name = "upload"
	}
	if e.Format == FormatDetect {
		return fmt.Sprintf("source %s: %v", name, e.Err)
	}
	return fmt.Sprintf("source %s (%s): %v", name, e.Format, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Load reads the grid described by spec from the filesystem.
func Load(ctx context.Context, spec Spec) (core.Grid, error) {
	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, &ReadError{Path: spec.Path, Format: spec.Format, Err: err}
	}
	defer f.Close()

	return Read(ctx, f, spec)
}

// Read reads a grid from r. spec.Path is only used for format detection and
// error messages. The whole input is buffered: grids are resident in memory.
func Read(ctx context.Context, r io.Reader, spec Spec) (core.Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ReadError{Path: spec.Path, Format: spec.Format, Err: err}
	}

	format := spec.Format
	if format == FormatDetect {
		format = Detect(spec.Path, data)
	}

	var rng Range
	if spec.Range != "" {
		rng, err = ParseRange(spec.Range)
		if err != nil {
			return nil, &ReadError{Path: spec.Path, Format: format, Err: err}
		}
	}

	sheet := spec.Sheet
	if sheet == "" {
		sheet = rng.Sheet
	}

	var grid core.Grid
	switch format {
	case FormatCSV:
		grid, err = readCSV(ctx, bytes.NewReader(data), ',')
	case FormatTSV:
		grid, err = readCSV(ctx, bytes.NewReader(data), '\t')
	case FormatXLSX:
		grid, err = readXLSX(data, sheet)
	case FormatJSON:
		grid, err = readValues(data)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &ReadError{Path: spec.Path, Format: format, Err: err}
	}

	if spec.Range != "" {
		grid = rng.Crop(grid)
	}
	return grid, nil
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDetect, FormatCSV, FormatTSV, FormatXLSX, FormatJSON:
		return f, nil
	}
	return FormatDetect, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Detect picks a format from the file extension, falling back to sniffing
// the content. Plain text is read as CSV.
func Detect(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".json":
		return FormatJSON
	}

	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
			m.Is("application/zip"):
			// xlsx is the only zip container read here.
			return FormatXLSX
		case m.Is("application/json"):
			return FormatJSON
		case m.Is("text/tab-separated-values"):
			return FormatTSV
		case m.Is("text/csv"), m.Is("text/plain"):
			return FormatCSV
		}
	}
	return FormatDetect
}
