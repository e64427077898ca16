package engine

import (
	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"golang.org/x/sync/errgroup"
)

// checkColumns validates every bound column. With more than one worker the
// columns run concurrently; each column only writes its own cells and its own
// error buffer, and buffers are merged in declaration order.
func (e *Engine) checkColumns() {
	results := make([][]ErrorRecord, len(e.columns))

	if e.workers <= 1 || len(e.columns) < 2 {
		for i := range e.columns {
			results[i] = e.checkColumn(&e.columns[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := range e.columns {
			g.Go(func() error {
				results[i] = e.checkColumn(&e.columns[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, errs := range results {
		e.errors = append(e.errors, errs...)
	}
}

// checkColumn runs the validator chain over every cell of one column.
func (e *Engine) checkColumn(c *boundColumn) []ErrorRecord {
	var errs []ErrorRecord

	for pos := 0; pos < e.tbl.Len(); pos++ {
		v, _ := e.tbl.Get(pos, c.Key)

		out, err := runChain(c.chain, v)
		if err != nil {
			errs = append(errs, ErrorRecord{
				Severity: Recoverable,
				Line:     e.line(e.tbl.Index(pos)),
				Column:   c.Key,
				Message:  err.Error(),
			})
			continue
		}

		// The column exists: it was renamed or added by AddColumn.
		_ = e.tbl.Set(pos, c.Key, out)
	}
	return errs
}

// runChain threads v through each validator and stops at the first failure.
func runChain(chain []rules.Validator, v any) (any, error) {
	var err error
	for _, fn := range chain {
		if v, err = fn.Validate(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}
