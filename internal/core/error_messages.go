package core

// # Error Codes Reference
//
// This file maps transform, source and request errors to user-friendly
// messages with codes for support reference.
//
// # Grid Errors (GRID001-GRID099)
//
//	GRID001 - No data: The sheet has no rows
//	          Action: Check the sheet name and range point at the data
//	          Patterns: "no data"
//
//	GRID002 - Header out of range: The header row is past the end of the sheet
//	          Action: Lower header_offset or widen the range
//	          Patterns: "header row out of range"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Column not found: A declared column is not in the header
//	         Action: Verify column names match the header row exactly
//	         Patterns: "column not found"
//
//	COL002 - Invalid column declaration: A column entry could not be parsed
//	         Action: Use a name or {name, autofill, default}
//	         Patterns: "invalid column declaration"
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Unsupported format: The file is not CSV, XLSX or JSON
//	SRC002 - Invalid range: The A1 range could not be parsed
//	SRC003 - Sheet not found: The workbook has no sheet with that name
//	SRC004 - File too large: The upload exceeds the configured limit
//	SRC005 - No file: No file was provided
//	SRC006 - Invalid CSV: The file could not be parsed as CSV or TSV
//	SRC007 - Source missing: The pipeline's source file does not exist
//	SRC008 - Invalid JSON: The file is not a Sheets values document
//
// # Pipeline Errors (PIPE001-PIPE099)
//
//	PIPE001 - Pipeline not found: No pipeline is configured under that name
//	PIPE002 - Busy: Every run slot is taken
//	PIPE003 - Run not found: No persisted run has that id
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timeout
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused: Unable to connect to database
//	DB006 - Timeout: Operation timed out
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Pattern Matching
//
// Typed errors are matched first with errors.Is. Anything else is matched
// case-insensitively with strings.Contains; the first matching pattern wins, so
// more specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgNoData = UserMessage{
		Message: "The sheet has no rows",
		Action:  "Check that the sheet name and range point at the data",
		Code:    "GRID001",
	}
	msgHeaderRange = UserMessage{
		Message: "The header row is past the end of the sheet",
		Action:  "Lower header_offset or widen the range",
		Code:    "GRID002",
	}
	msgColumnNotFound = UserMessage{
		Message: "A declared column is not in the header row",
		Action:  "Verify column names match the header row exactly",
		Code:    "COL001",
	}
	msgInvalidColumn = UserMessage{
		Message: "A column declaration could not be parsed",
		Action:  "Declare columns as a name or as {name, autofill, default}",
		Code:    "COL002",
	}
	msgSourceMissing = UserMessage{
		Message: "The source file could not be found",
		Action:  "Check the pipeline's source path",
		Code:    "SRC007",
	}
	msgInvalidValues = UserMessage{
		Message: "The file is not a Sheets values document",
		Action:  "Send a ValueRange object or a JSON array of rows",
		Code:    "SRC008",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller sheet or a narrower range",
		Code:    "REQ002",
	}
)

// sentinelMessages are checked with errors.Is before any pattern.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrEmptyInput, msgNoData},
	{ErrHeaderOutOfRange, msgHeaderRange},
	{ErrMissingColumn, msgColumnNotFound},
	{ErrInvalidColumn, msgInvalidColumn},
	{fs.ErrNotExist, msgSourceMissing},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgDeadline},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "no data", msg: msgNoData},
	{pattern: "header row out of range", msg: msgHeaderRange},
	{pattern: "column not found", msg: msgColumnNotFound},
	{pattern: "invalid column declaration", msg: msgInvalidColumn},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "The file format is not supported",
			Action:  "Upload a CSV, XLSX or Sheets JSON export",
			Code:    "SRC001",
		},
	},
	{
		pattern: "invalid range",
		msg: UserMessage{
			Message: "The range could not be understood",
			Action:  "Use A1 notation such as A1:D20, B:D or Sheet1!A2:C",
			Code:    "SRC002",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The workbook has no sheet with that name",
			Action:  "Check the sheet name, including capitalization",
			Code:    "SRC003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Narrow the range or split the file",
			Code:    "SRC004",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach a file in the \"file\" form field",
			Code:    "SRC005",
		},
	},
	{pattern: "invalid json", msg: msgInvalidValues},
	{pattern: "json array of rows", msg: msgInvalidValues},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "The file could not be parsed as CSV or TSV",
			Action:  "Ensure the file is comma or tab separated with balanced quotes",
			Code:    "SRC006",
		},
	},
	{
		pattern: "pipeline not found",
		msg: UserMessage{
			Message: "No pipeline is configured under that name",
			Action:  "List pipelines with GET /api/pipelines",
			Code:    "PIPE001",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "The server is busy running other pipelines",
			Action:  "Please try again in a few moments",
			Code:    "PIPE002",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "No run exists with that id",
			Action:  "Check the run_id returned when the pipeline ran",
			Code:    "PIPE003",
		},
	},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgDeadline},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, a generic fallback with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(&MissingColumnError{Column: "Amount"})
//	// msg.Code == "COL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
