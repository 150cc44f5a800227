package core

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transform(t *testing.T, grid Grid, offset HeaderOffset, specs []ColumnSpec) ([]Record, *Issues) {
	t.Helper()
	issues := &Issues{}
	recs := slices.Collect(Transform(grid, Options{HeaderOffset: offset, Columns: specs}, issues))
	return recs, issues
}

func TestMapColumns_AutofillFromPreviousRecord(t *testing.T) {
	grid := Grid{{"A", "B"}, {"1", "2"}, {"", "4"}}
	specs := []ColumnSpec{
		{Name: "A", Field: "x", Autofill: true, Default: "z"},
		{Name: "B", Field: "y"},
	}

	recs, issues := transform(t, grid, Offset(0), specs)

	assert.Equal(t, []Record{
		{"x": "1", "y": "2"},
		{"x": "1", "y": "4"},
	}, recs)
	assert.Zero(t, issues.Len())
}

func TestMapColumns_EmptyPolicy(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		spec  ColumnSpec
		want  []string
	}{
		{
			name:  "autofill with no previous value uses default",
			cells: []string{"", "a"},
			spec:  ColumnSpec{Name: "C", Field: "c", Autofill: true, Default: "d"},
			want:  []string{"d", "a"},
		},
		{
			name:  "autofill carries across consecutive empties",
			cells: []string{"a", "", "", "b", ""},
			spec:  ColumnSpec{Name: "C", Field: "c", Autofill: true},
			want:  []string{"a", "a", "a", "b", "b"},
		},
		{
			name:  "autofill carries the resolved default forward",
			cells: []string{"", ""},
			spec:  ColumnSpec{Name: "C", Field: "c", Autofill: true, Default: "d"},
			want:  []string{"d", "d"},
		},
		{
			name:  "non-autofill always uses default",
			cells: []string{"a", "", "b", ""},
			spec:  ColumnSpec{Name: "C", Field: "c", Default: "d"},
			want:  []string{"a", "d", "b", "d"},
		},
		{
			name:  "zero and whitespace are values",
			cells: []string{"0", " "},
			spec:  ColumnSpec{Name: "C", Field: "c", Default: "d"},
			want:  []string{"0", " "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := Grid{{"C"}}
			for _, cell := range tt.cells {
				grid = append(grid, Row{cell})
			}

			recs, _ := transform(t, grid, Offset(0), []ColumnSpec{tt.spec})

			var got []string
			for _, rec := range recs {
				got = append(got, rec["c"])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapColumns_MissingColumnOmitsField(t *testing.T) {
	grid := Grid{{"A"}, {"1"}, {"2"}}
	specs := []ColumnSpec{
		{Name: "A", Field: "a"},
		{Name: "Nope", Field: "n", Default: "x"},
	}

	recs, issues := transform(t, grid, Offset(0), specs)

	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.NotContains(t, rec, "n")
		assert.Contains(t, rec, "a")
	}

	require.Equal(t, 2, issues.Len(), "reported once per row")
	var missing *MissingColumnError
	require.ErrorAs(t, issues.Errors()[1], &missing)
	assert.Equal(t, "Nope", missing.Column)
	assert.Equal(t, 3, missing.Line)
}

func TestMapColumns_PositionalLookup(t *testing.T) {
	grid := Grid{{"a", "b"}, {"", "c"}}
	specs := []ColumnSpec{{Name: "0", Field: "first", Autofill: true}}

	recs, _ := transform(t, grid, NoHeader, specs)
	assert.Equal(t, []Record{{"first": "a"}, {"first": "a"}}, recs)
}

func TestMapColumns_EmptyGrid(t *testing.T) {
	recs, issues := transform(t, Grid{}, Offset(0), []ColumnSpec{{Name: "A", Field: "a"}})

	assert.Empty(t, recs)
	require.Equal(t, 1, issues.Len())
	assert.True(t, issues.Has(ErrEmptyInput))
}

func TestMapColumns_FreshStatePerRange(t *testing.T) {
	grid := Grid{{"A"}, {""}, {"1"}}
	seq := Transform(grid, Options{
		HeaderOffset: Offset(0),
		Columns:      []ColumnSpec{{Name: "A", Field: "a", Autofill: true, Default: "d"}},
	}, nil)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, []Record{{"a": "d"}, {"a": "1"}}, first)
	assert.Equal(t, first, second)
}

func TestMapColumns_CallerMutationDoesNotLeakIntoAutofill(t *testing.T) {
	grid := Grid{{"A"}, {"1"}, {""}}
	specs := []ColumnSpec{{Name: "A", Field: "a", Autofill: true}}

	var got []string
	for rec := range Transform(grid, Options{HeaderOffset: Offset(0), Columns: specs}, nil) {
		got = append(got, rec["a"])
		rec["a"] = "mutated"
	}
	assert.Equal(t, []string{"1", "1"}, got)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.False(t, IsEmpty("0"))
	assert.False(t, IsEmpty(" "))
}
