// Package engine validates one loaded spreadsheet table against a declared
// set of columns.
//
// # Lifecycle
//
// An [Engine] owns exactly one [table.Table] for one validation run:
//
//  1. [New] takes the loaded table and the header row it was read from
//  2. [Engine.AddColumn] binds each declared field to a physical column
//  3. [Engine.CheckAll] runs the cell, row and duplicate stages
//  4. [Engine.Result] returns normalized records, unless errors were found
//
// # Binding
//
// Header names and search terms are folded with [textnorm.Fold]. A physical
// column matches a field when every folded term is a substring of its folded
// header; the first matching column from the left that is not already bound
// wins. A missing required field becomes a CRITICAL [ErrorRecord] and the
// field is dropped from the run. A missing optional field is added to the
// table and filled with its default.
//
// # Stages
//
// Cells are validated column by column. Each cell runs through
// Before, the type validator and After, stopping at the first failure. Only a
// cell whose whole chain succeeds is written back. The optional row transform
// then sees each row projected onto the bound keys. Duplicate detection runs
// last.
//
// Every data failure is recorded as a RECOVERABLE [ErrorRecord] and the run
// continues. Configuration mistakes (unknown type, duplicate key) are returned
// as errors from AddColumn and are never recorded.
//
// # Line numbers
//
// Errors point at the document line a spreadsheet user sees:
// row index + header row + 2. The header row is 0-based.
//
// # Repeated runs
//
// CheckAll does not reset state. Calling it twice validates the already
// normalized table again and appends any new errors to the existing ones.
package engine
