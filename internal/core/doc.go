// Package core turns a ragged grid of cells into a stream of mapped records.
//
// This package is the heart of gridmap. It has no transport, file or storage
// dependencies: sources produce a [Grid], the host consumes [Record] values or
// merged contexts, and everything in between lives here.
//
// # Pipeline
//
// The transform is a pull-based chain of iterators. Nothing is computed until
// the host ranges over the result, and stopping early stops the work:
//
//	grid --NormalizeGrid--> iter.Seq[KeyedRow] --MapColumns--> iter.Seq[Record]
//
// [NormalizeGrid] pads every row to the grid width, drops rows above the
// header, and zips the remaining rows against the header labels.
// [MapColumns] resolves each declared column, substituting the column default
// or, for autofill columns, the previous record's value when a cell is empty.
//
// # Column Declarations
//
// Columns are declared in YAML or JSON as bare names or structured entries and
// resolved once into [ColumnSpec] values:
//
//	columns:
//	  date: Date
//	  region: {name: Region, autofill: true}
//	  amount: {name: Amount, default: "0"}
//
// # Merging
//
// [Run] merges each record into a copy of the upstream context with a
// [MergeFunc] (by default [MergeInto]) and hands the result to the host, one
// record at a time and in row order.
//
// # Error Handling
//
// Per-row problems never abort a sequence. They are sent to a [Reporter]:
//
//   - [EmptyInputError]: the grid has no rows (GRID001)
//   - [HeaderOutOfRangeError]: the header offset is past the last row (GRID002)
//   - [MissingColumnError]: a declared column is absent from a row (COL001)
//
// Technical errors are mapped to user-friendly messages using [MapError].
package core
