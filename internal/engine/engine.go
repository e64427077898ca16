package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"github.com/JonMunkholm/sheetcheck/internal/table"
)

// DefaultHeaderRow is the 0-based header row assumed when none is given:
// one title line above the column names.
const DefaultHeaderRow = 1

// Column declares one logical field.
type Column struct {
	Key      string   // Logical name; the bound physical column is renamed to it
	Names    []string // Search terms, all of which must match the header. Empty means Key.
	Required bool
	Default  any        // Fill value when an optional column is absent
	Type     rules.Kind // Empty means rules.String
	Before   rules.Validator
	After    rules.Validator
}

// Record is one exported row, keyed by logical field.
type Record map[string]any

// CheckOptions selects the optional stages of CheckAll.
type CheckOptions struct {
	Row           rules.RowTransform
	DuplicateKeys []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithHeaderRow sets the 0-based row the table's header was read from.
func WithHeaderRow(n int) Option {
	return func(e *Engine) { e.headerRow = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWorkers validates up to n columns concurrently. n <= 1 is sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

type boundColumn struct {
	Column
	chain []rules.Validator
}

// Engine runs one validation over one table. It is not safe for concurrent use.
type Engine struct {
	tbl       *table.Table
	headerRow int
	workers   int
	logger    *slog.Logger

	columns  []boundColumn
	declared map[string]bool
	errors   []ErrorRecord
}

// New creates an engine that takes ownership of tbl.
func New(tbl *table.Table, opts ...Option) (*Engine, error) {
	if tbl == nil {
		return nil, errors.New("engine: table is nil")
	}

	e := &Engine{
		tbl:       tbl,
		headerRow: DefaultHeaderRow,
		workers:   1,
		logger:    slog.Default(),
		declared:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.headerRow < 0 {
		return nil, fmt.Errorf("engine: header row must be non-negative, got %d", e.headerRow)
	}
	return e, nil
}

// CheckAll runs the column stage, then the optional row transform, then the
// optional duplicate check. It reports whether any error has been recorded,
// including errors from earlier calls and from binding.
func (e *Engine) CheckAll(opts CheckOptions) bool {
	start := time.Now()
	before := len(e.errors)

	e.checkColumns()
	if opts.Row != nil {
		e.checkRows(opts.Row)
	}
	if len(opts.DuplicateKeys) > 0 {
		e.checkDuplicates(opts.DuplicateKeys)
	}

	e.logger.Info("validation finished",
		"rows", e.tbl.Len(),
		"columns", len(e.columns),
		"new_errors", len(e.errors)-before,
		"total_errors", len(e.errors),
		"duration", time.Since(start),
	)
	return e.HasErrors()
}

// HasErrors reports whether any error of any severity was recorded.
func (e *Engine) HasErrors() bool { return len(e.errors) > 0 }

// HasCritical reports whether a required field could not be bound.
func (e *Engine) HasCritical() bool {
	return slices.ContainsFunc(e.errors, func(r ErrorRecord) bool { return r.Severity == Critical })
}

// Errors returns a copy of the recorded errors in detection order.
func (e *Engine) Errors() []ErrorRecord { return slices.Clone(e.errors) }

// PrintErrors writes one line per error to w.
func (e *Engine) PrintErrors(w io.Writer) error {
	for _, r := range e.errors {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the bound logical keys in declaration order.
func (e *Engine) Keys() []string {
	keys := make([]string, len(e.columns))
	for i, c := range e.columns {
		keys[i] = c.Key
	}
	return keys
}

// HeaderRow returns the 0-based header row used for line numbers.
func (e *Engine) HeaderRow() int { return e.headerRow }

// Table returns the table being validated.
func (e *Engine) Table() *table.Table { return e.tbl }

// Result returns one record per row holding only the bound keys. Unless force
// is set it fails with ErrValidationFailed when any error was recorded.
func (e *Engine) Result(force bool) ([]Record, error) {
	if !force && e.HasErrors() {
		return nil, fmt.Errorf("%w: %d errors", ErrValidationFailed, len(e.errors))
	}

	keys := e.Keys()
	out := make([]Record, 0, e.tbl.Len())
	for pos := 0; pos < e.tbl.Len(); pos++ {
		rec := make(Record, len(keys))
		for _, k := range keys {
			v, _ := e.tbl.Get(pos, k)
			rec[k] = normalizeNull(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Line translates a 0-based row index into the 1-based document line.
func Line(index, headerRow int) int { return index + headerRow + 2 }

func (e *Engine) line(index int) int { return Line(index, e.headerRow) }

func (e *Engine) record(sev Severity, line int, column, message string) {
	e.errors = append(e.errors, ErrorRecord{
		Severity: sev,
		Line:     line,
		Column:   column,
		Message:  message,
	})
}

func normalizeNull(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return nil
		}
	}
	return v
}
