package core

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// ContextCheckInterval is how often (in records) Run checks for cancellation.
// Zero or less disables the periodic check.
var ContextCheckInterval = 100

// Options configures one transform invocation.
type Options struct {
	HeaderOffset HeaderOffset
	Columns      []ColumnSpec
	Target       string    // Context key the record is merged under; empty merges at the top level
	Merge        MergeFunc // Defaults to MergeInto(Target)
}

// Result is one merged record handed to the host.
type Result struct {
	Line    int            `json:"line"`
	Record  Record         `json:"record"`
	Context map[string]any `json:"context"`
}

// Transform chains NormalizeGrid and MapColumns.
func Transform(grid Grid, opts Options, report Reporter) iter.Seq[Record] {
	return MapColumns(NormalizeGrid(grid, opts.HeaderOffset, report), opts.Columns, report)
}

// Run pulls records from grid one at a time, merges each into upstream exactly
// once, in row order, and passes the result to emit before producing the next.
//
// Issues go to report and never stop the run. Run stops early and returns the
// error when ctx is cancelled or when merge or emit fails.
func Run(
	ctx context.Context,
	grid Grid,
	opts Options,
	upstream map[string]any,
	report Reporter,
	emit func(Result) error,
) (stats Stats, err error) {
	start := time.Now()

	var issues int
	counted := ReporterFunc(func(err error) {
		issues++
		if report != nil {
			report.Report(err)
		}
	})
	defer func() {
		stats.Issues = issues
		stats.Duration = time.Since(start)
	}()

	merge := opts.Merge
	if merge == nil {
		merge = MergeInto(opts.Target)
	}

	rows := NormalizeGrid(grid, opts.HeaderOffset, counted)
	for line, rec := range mapRows(rows, opts.Columns, counted) {
		if n := ContextCheckInterval; n > 0 && stats.Rows%n == 0 {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("transform cancelled at line %d: %w", line, err)
			}
		}

		merged, err := merge(upstream, rec)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		if err := emit(Result{Line: line, Record: rec, Context: merged}); err != nil {
			return stats, err
		}
		stats.Rows++
	}

	return stats, nil
}

// Collect runs the transform and returns every result in order.
func Collect(ctx context.Context, grid Grid, opts Options, upstream map[string]any, report Reporter) ([]Result, Stats, error) {
	var results []Result
	stats, err := Run(ctx, grid, opts, upstream, report, func(r Result) error {
		results = append(results, r)
		return nil
	})
	return results, stats, err
}
