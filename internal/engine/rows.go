package engine

import (
	"github.com/JonMunkholm/sheetcheck/internal/rules"
)

// checkRows passes each row, projected onto the bound keys, through t. Only
// returned keys that are bound are written back; a failing row keeps its
// values and gets one error without a column.
func (e *Engine) checkRows(t rules.RowTransform) {
	keys := e.Keys()
	bound := make(map[string]bool, len(keys))
	for _, k := range keys {
		bound[k] = true
	}

	for pos := 0; pos < e.tbl.Len(); pos++ {
		out, err := t.Transform(e.tbl.Project(pos, keys))
		if err != nil {
			e.record(Recoverable, e.line(e.tbl.Index(pos)), "", err.Error())
			continue
		}

		for k, v := range out {
			if bound[k] {
				_ = e.tbl.Set(pos, k, v)
			}
		}
	}
}
