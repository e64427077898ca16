// Package schema holds named spreadsheet layouts: which sheet to read, where
// the header is, which fields to bind and how to check them.
//
// Definitions come from two places. Built-in layouts register themselves at
// init time (see package builtin); others are loaded from YAML files with
// [LoadFile] or [LoadDir] and added with [Add].
package schema

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/JonMunkholm/sheetcheck/internal/engine"
	"github.com/JonMunkholm/sheetcheck/internal/rules"
)

// ErrInvalidDefinition wraps every problem found by Definition.Validate.
var ErrInvalidDefinition = errors.New("invalid schema definition")

// identRegex restricts export table names to plain SQL identifiers,
// optionally schema-qualified.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Definition describes one spreadsheet layout.
type Definition struct {
	Key         string
	Label       string
	Description string

	Sheet     string // Sheet search term for workbooks
	HeaderRow int    // 0-based

	Columns       []engine.Column
	Row           rules.RowTransform
	DuplicateKeys []string

	ExportTable string // Target table for database export; empty disables export
}

// Apply declares every column on e, in order.
func (d Definition) Apply(e *engine.Engine) error {
	for _, c := range d.Columns {
		if err := e.AddColumn(c); err != nil {
			return fmt.Errorf("schema %q: %w", d.Key, err)
		}
	}
	return nil
}

// CheckOptions returns the optional stages configured for this layout.
func (d Definition) CheckOptions() engine.CheckOptions {
	return engine.CheckOptions{
		Row:           d.Row,
		DuplicateKeys: d.DuplicateKeys,
	}
}

// ColumnKeys returns the declared keys in order.
func (d Definition) ColumnKeys() []string {
	keys := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Validate checks the definition for mistakes that would otherwise surface as
// setup errors during a run. All problems are reported together.
func (d Definition) Validate() error {
	var errs []error

	if d.Key == "" {
		errs = append(errs, errors.New("key is required"))
	}
	if d.HeaderRow < 0 {
		errs = append(errs, fmt.Errorf("header_row must be non-negative, got %d", d.HeaderRow))
	}
	if len(d.Columns) == 0 {
		errs = append(errs, errors.New("at least one column is required"))
	}

	seen := make(map[string]bool, len(d.Columns))
	for i, c := range d.Columns {
		switch {
		case c.Key == "":
			errs = append(errs, fmt.Errorf("column %d: key is required", i))
		case seen[c.Key]:
			errs = append(errs, fmt.Errorf("column %q declared twice", c.Key))
		}
		seen[c.Key] = true

		if _, err := rules.Lookup(c.Type); err != nil {
			errs = append(errs, fmt.Errorf("column %q: %w", c.Key, err))
		}
	}

	for _, k := range d.DuplicateKeys {
		if !seen[k] {
			errs = append(errs, fmt.Errorf("duplicate key %q is not a declared column", k))
		}
	}

	if d.ExportTable != "" && !identRegex.MatchString(d.ExportTable) {
		errs = append(errs, fmt.Errorf("export_table %q is not a valid identifier", d.ExportTable))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidDefinition, d.Key, errors.Join(errs...))
	}
	return nil
}
