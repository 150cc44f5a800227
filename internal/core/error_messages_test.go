package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty input",
			err:         &EmptyInputError{},
			wantCode:    "GRID001",
			wantMessage: "The sheet has no rows",
		},
		{
			name:     "header out of range",
			err:      &HeaderOutOfRangeError{Offset: 4, Rows: 2},
			wantCode: "GRID002",
		},
		{
			name:        "missing column wrapped",
			err:         fmt.Errorf("row: %w", &MissingColumnError{Column: "Amount", Line: 3}),
			wantCode:    "COL001",
			wantMessage: "A declared column is not in the header row",
		},
		{
			name:     "invalid column declaration",
			err:      fmt.Errorf("column 2: empty name: %w", ErrInvalidColumn),
			wantCode: "COL002",
		},
		{
			name:     "unsupported format by pattern",
			err:      errors.New("source report.pdf: unsupported format"),
			wantCode: "SRC001",
		},
		{
			name:     "excelize missing sheet",
			err:      errors.New("sheet Summary does not exist"),
			wantCode: "SRC003",
		},
		{
			name:     "missing source file",
			err:      fmt.Errorf("source roster.csv: %w", fs.ErrNotExist),
			wantCode: "SRC007",
		},
		{
			name:     "csv parse error",
			err:      errors.New(`parse error on line 3, column 5: bare " in non-quoted-field`),
			wantCode: "SRC006",
		},
		{
			name:        "invalid json",
			err:         errors.New("source sheet.json (json): parse error: invalid JSON"),
			wantCode:    "SRC008",
			wantMessage: "The file is not a Sheets values document",
		},
		{
			name:     "json that is not rows",
			err:      errors.New("parse error: values must be a JSON array of rows"),
			wantCode: "SRC008",
		},
		{
			name:     "cancelled context",
			err:      fmt.Errorf("transform cancelled at line 9: %w", context.Canceled),
			wantCode: "REQ001",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: "REQ002",
		},
		{
			name:        "unknown error falls back",
			err:         errors.New("something odd"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(&EmptyInputError{})
	want := "The sheet has no rows (Code: GRID001). Check that the sheet name and range point at the data"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if FormatUserError(nil) != "" {
		t.Error("nil error should format to empty string")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(&MissingColumnError{Column: "A"}) {
		t.Error("missing column should be user facing")
	}
	if IsUserFacing(errors.New("something odd")) {
		t.Error("unknown error should not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
}
