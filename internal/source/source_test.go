package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  core.Grid
	}{
		{
			name:  "ragged rows",
			input: "A,B,C\n1\n2,3\n",
			want:  core.Grid{{"A", "B", "C"}, {"1"}, {"2", "3"}},
		},
		{
			name:  "bom stripped",
			input: "\xEF\xBB\xBFName,Team\nann,red\n",
			want:  core.Grid{{"Name", "Team"}, {"ann", "red"}},
		},
		{
			name:  "invalid utf8 replaced",
			input: "he\x80lo\n",
			want:  core.Grid{{"he�lo"}},
		},
		{
			name:  "lazy quotes",
			input: "a \"quoted\" word,b\n",
			want:  core.Grid{{`a "quoted" word`, "b"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  core.Grid{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(context.Background(), strings.NewReader(tt.input), Spec{Format: FormatCSV})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_TSV(t *testing.T) {
	got, err := Read(context.Background(), strings.NewReader("a\tb\n1\t2\n"), Spec{Path: "x.tsv"})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"a", "b"}, {"1", "2"}}, got)
}

func TestRead_CSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, strings.NewReader("a\n"), Spec{Format: FormatCSV})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRead_CSVZeroCheckInterval(t *testing.T) {
	prev := core.ContextCheckInterval
	core.ContextCheckInterval = 0
	t.Cleanup(func() { core.ContextCheckInterval = prev })

	got, err := Read(context.Background(), strings.NewReader("a\n1\n"), Spec{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"a"}, {"1"}}, got)
}

func TestRead_CSVWithRange(t *testing.T) {
	input := "title,,\nA,B,C\n1,2,3\n"
	got, err := Read(context.Background(), strings.NewReader(input), Spec{Format: FormatCSV, Range: "B2:C"})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"B", "C"}, {"2", "3"}}, got)
}

func TestRead_InvalidRange(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader("a\n"), Spec{Format: FormatCSV, Range: "A1:"})
	assert.ErrorIs(t, err, ErrInvalidRange)

	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, FormatCSV, readErr.Format)
}

func TestRead_JSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  core.Grid
	}{
		{
			name:  "value range",
			input: `{"range":"Sheet1!A1:C3","majorDimension":"ROWS","values":[["A","B"],["1"],[2,true,null]]}`,
			want:  core.Grid{{"A", "B"}, {"1"}, {"2", "true", ""}},
		},
		{
			name:  "bare array",
			input: `[["x", 1.5], []]`,
			want:  core.Grid{{"x", "1.5"}, {}},
		},
		{
			name:  "empty range omits values",
			input: `{"range":"Sheet1!A1:C3","majorDimension":"ROWS"}`,
			want:  core.Grid{},
		},
		{
			name:  "column major",
			input: `{"majorDimension":"COLUMNS","values":[["A","1","2"],["B","3"]]}`,
			want:  core.Grid{{"A", "B"}, {"1", "3"}, {"2", ""}},
		},
		{
			name:  "nested values kept raw",
			input: `[[{"k":1}]]`,
			want:  core.Grid{{`{"k":1}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(context.Background(), strings.NewReader(tt.input), Spec{Format: FormatJSON})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_JSONInvalid(t *testing.T) {
	for _, input := range []string{`{"values":`, `{"values":"nope"}`, `"scalar"`} {
		_, err := Read(context.Background(), strings.NewReader(input), Spec{Format: FormatJSON})
		assert.ErrorContains(t, err, "parse error")
	}
}

func xlsxBytes(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRead_XLSX(t *testing.T) {
	data := xlsxBytes(t, map[string][][]any{
		"Data": {{"Name", "Amount"}, {"ann", 12}, {"bob"}},
	})

	got, err := Read(context.Background(), bytes.NewReader(data), Spec{Path: "book.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"Name", "Amount"}, {"ann", "12"}, {"bob"}}, got)
}

func TestRead_XLSXSheetFromRange(t *testing.T) {
	data := xlsxBytes(t, map[string][][]any{"Data": {{"a", "b", "c"}, {"1", "2", "3"}}})

	got, err := Read(context.Background(), bytes.NewReader(data), Spec{Format: FormatXLSX, Range: "Data!B1:C2"})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"b", "c"}, {"2", "3"}}, got)
}

func TestRead_XLSXMissingSheet(t *testing.T) {
	data := xlsxBytes(t, map[string][][]any{"Data": {{"a"}}})

	_, err := Read(context.Background(), bytes.NewReader(data), Spec{Format: FormatXLSX, Sheet: "Summary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, "SRC003", core.MapError(err).Code)
}

func TestRead_Unsupported(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader("x"), Spec{Format: "pdf"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "SRC001", core.MapError(err).Code)
}

func TestDetect(t *testing.T) {
	xlsx := xlsxBytes(t, map[string][][]any{"S": {{"a"}}})

	tests := []struct {
		name string
		path string
		data []byte
		want Format
	}{
		{"csv extension", "a.CSV", nil, FormatCSV},
		{"tsv extension", "a.tsv", nil, FormatTSV},
		{"xlsx extension", "a.xlsx", nil, FormatXLSX},
		{"json extension", "a.json", nil, FormatJSON},
		{"sniff xlsx", "", xlsx, FormatXLSX},
		{"sniff json", "", []byte(`{"values":[["a"]]}`), FormatJSON},
		{"sniff text", "", []byte("a,b\n1,2\n"), FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.path, tt.data))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name\nann\n"), 0o600))

	got, err := Load(context.Background(), Spec{Path: path})
	require.NoError(t, err)
	assert.Equal(t, core.Grid{{"Name"}, {"ann"}}, got)

	_, err = Load(context.Background(), Spec{Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
