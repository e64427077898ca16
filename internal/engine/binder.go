package engine

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"github.com/JonMunkholm/sheetcheck/internal/textnorm"
)

// AddColumn binds c to a physical column of the table.
//
// The returned error is always a configuration mistake: an empty or repeated
// key, or an unknown type. Header content never makes it fail. A required
// column that cannot be found is recorded as CRITICAL and the column is
// skipped for the rest of the run. An unbound physical column that already
// carries the key's name is renamed to a free name first.
func (e *Engine) AddColumn(c Column) error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("add column: key must not be empty")
	}
	if e.declared[c.Key] {
		return fmt.Errorf("add column %q: key declared twice", c.Key)
	}

	validate, err := rules.Lookup(c.Type)
	if err != nil {
		return fmt.Errorf("add column %q: %w", c.Key, err)
	}

	terms := c.Names
	if len(terms) == 0 {
		terms = []string{c.Key}
	}

	physical, found := e.findColumn(terms)
	if !found && c.Required {
		e.declared[c.Key] = true
		e.record(Critical, e.headerRow+1, "", fmt.Sprintf("Required column '%s' not found!", strings.Join(terms, " ")))
		e.logger.Warn("required column not found", "key", c.Key, "terms", terms)
		return nil
	}

	if physical != c.Key && e.tbl.HasColumn(c.Key) {
		moved := e.tbl.FreeName(c.Key)
		if err := e.tbl.Rename(c.Key, moved); err != nil {
			return fmt.Errorf("add column %q: %w", c.Key, err)
		}
		e.logger.Debug("unbound column renamed", "from", c.Key, "to", moved)
	}

	if found {
		if err := e.tbl.Rename(physical, c.Key); err != nil {
			return fmt.Errorf("add column %q: %w", c.Key, err)
		}
		e.logger.Debug("column bound", "key", c.Key, "header", physical)
	} else {
		e.tbl.AddColumn(c.Key, c.Default)
		e.logger.Debug("optional column filled with default", "key", c.Key, "default", c.Default)
	}
	e.declared[c.Key] = true

	chain := make([]rules.Validator, 0, 3)
	if c.Before != nil {
		chain = append(chain, c.Before)
	}
	chain = append(chain, validate)
	if c.After != nil {
		chain = append(chain, c.After)
	}

	e.columns = append(e.columns, boundColumn{Column: c, chain: chain})
	return nil
}

// findColumn scans physical columns left to right and returns the first one
// not yet bound whose folded header contains every folded term.
func (e *Engine) findColumn(terms []string) (string, bool) {
	folded := make([]string, len(terms))
	for i, t := range terms {
		folded[i] = textnorm.Fold(t)
	}

	for _, col := range e.tbl.Columns() {
		if e.isBound(col) {
			continue
		}
		header := textnorm.Fold(col)
		match := true
		for _, t := range folded {
			if !strings.Contains(header, t) {
				match = false
				break
			}
		}
		if match {
			return col, true
		}
	}
	return "", false
}

func (e *Engine) isBound(col string) bool {
	for _, c := range e.columns {
		if c.Key == col {
			return true
		}
	}
	return false
}
