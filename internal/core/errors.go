package core

// errors.go defines the issues a transform can raise and the channel they are
// reported through.
//
// None of these errors stop a sequence by panicking or by being returned from
// an iterator. They are handed to a Reporter and the host decides what to do:
//
//   - EmptyInputError: the grid has no rows; the sequence yields nothing.
//   - HeaderOutOfRangeError: the header offset is past the last row; the
//     sequence yields nothing.
//   - MissingColumnError: a declared column is absent from a row; the row is
//     still emitted without that field.

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Sentinels for errors.Is matching.
var (
	ErrEmptyInput       = errors.New("no data")
	ErrMissingColumn    = errors.New("column not found")
	ErrHeaderOutOfRange = errors.New("header row out of range")
	ErrInvalidColumn    = errors.New("invalid column declaration")
)

// EmptyInputError is reported when the grid has zero rows.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no data: grid has no rows"
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// MissingColumnError is reported once per row for every declared column whose
// source name is not among that row's keys.
type MissingColumnError struct {
	Column string // Source column name that was looked up
	Line   int    // 1-based line of the row in the grid
}

func (e *MissingColumnError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("column not found: %q (line %d)", e.Column, e.Line)
	}
	return fmt.Sprintf("column not found: %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// HeaderOutOfRangeError is reported when the header offset does not address a
// row of the grid.
type HeaderOutOfRangeError struct {
	Offset int
	Rows   int
}

func (e *HeaderOutOfRangeError) Error() string {
	return fmt.Sprintf("header row out of range: offset %d, grid has %d rows", e.Offset, e.Rows)
}

func (e *HeaderOutOfRangeError) Is(target error) bool {
	return target == ErrHeaderOutOfRange
}

// Reporter receives non-fatal issues raised while a sequence is consumed.
// Implementations must not panic; the transform keeps going after Report returns.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) {
	f(err)
}

// Discard drops every issue.
var Discard Reporter = ReporterFunc(func(error) {})

// Issues is a Reporter that keeps every reported error in order.
// The zero value is ready to use and safe for concurrent use.
type Issues struct {
	mu   sync.Mutex
	errs []error
}

// Report records err. Nil errors are ignored.
func (i *Issues) Report(err error) {
	if err == nil {
		return
	}
	i.mu.Lock()
	i.errs = append(i.errs, err)
	i.mu.Unlock()
}

// Errors returns a copy of the reported errors.
func (i *Issues) Errors() []error {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]error, len(i.errs))
	copy(out, i.errs)
	return out
}

// Messages returns the human-readable form of every reported error.
func (i *Issues) Messages() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.errs))
	for n, err := range i.errs {
		out[n] = err.Error()
	}
	return out
}

// Len returns the number of reported errors.
func (i *Issues) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.errs)
}

// Has reports whether any recorded error matches target.
func (i *Issues) Has(target error) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, err := range i.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// LogReporter returns a Reporter that writes each issue to logger at warn level,
// tagged with its support code.
func LogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return ReporterFunc(func(err error) {
		if err == nil {
			return
		}
		attrs := []any{"error", err.Error(), "code", MapError(err).Code}

		var missing *MissingColumnError
		if errors.As(err, &missing) {
			attrs = append(attrs, "column", missing.Column, "line", missing.Line)
		}

		logger.Warn("transform issue", attrs...)
	})
}

// Tee fans an issue out to several reporters.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(err error) {
		for _, r := range reporters {
			if r != nil {
				r.Report(err)
			}
		}
	})
}
