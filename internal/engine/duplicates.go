package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/table"
)

// DetectDuplicates checks each key column independently for repeated values.
// The first occurrence of a value is never reported; nil and empty strings
// never count. Numbers compare by value and times by instant. Key columns not
// present in tbl are skipped.
//
// With no duplicates tbl is returned unchanged. Otherwise the result is nil
// and a *DuplicateError listing every repeat with its untranslated row index.
func DetectDuplicates(tbl *table.Table, keys []string) (*table.Table, error) {
	var dups []Duplicate

	for _, key := range keys {
		if !tbl.HasColumn(key) {
			continue
		}

		seen := make(map[any]struct{})
		for pos := 0; pos < tbl.Len(); pos++ {
			v, _ := tbl.Get(pos, key)
			k, ok := duplicateKey(v)
			if !ok {
				continue
			}
			if _, dup := seen[k]; dup {
				dups = append(dups, Duplicate{
					Message: fmt.Sprintf("value '%v' is duplicated", v),
					Column:  key,
					Index:   tbl.Index(pos),
				})
				continue
			}
			seen[k] = struct{}{}
		}
	}

	if len(dups) > 0 {
		return nil, &DuplicateError{Duplicates: dups}
	}
	return tbl, nil
}

type instant struct {
	sec  int64
	nsec int
}

// duplicateKey maps a cell to a comparable map key. ok is false for values
// exempt from duplicate detection.
func duplicateKey(v any) (key any, ok bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return x, x != ""
	case float64:
		return floatKey(x), !math.IsNaN(x)
	case float32:
		return floatKey(float64(x)), !math.IsNaN(float64(x))
	case int64:
		return x, true
	case int:
		return int64(x), true
	case time.Time:
		return instant{sec: x.Unix(), nsec: x.Nanosecond()}, true
	case bool:
		return x, true
	default:
		return fmt.Sprintf("%T:%v", v, v), true
	}
}

// floatKey keys integral floats as int64 so they meet integer cells with the
// same value. Large integers keep full precision as int64 keys.
func floatKey(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < -math.MinInt64 {
		return int64(f)
	}
	return f
}

func (e *Engine) checkDuplicates(keys []string) {
	for _, k := range keys {
		if !e.tbl.HasColumn(k) {
			e.logger.Warn("duplicate check skipped: column not in table", "key", k)
		}
	}

	_, err := DetectDuplicates(e.tbl, keys)

	var de *DuplicateError
	if errors.As(err, &de) {
		for _, d := range de.Duplicates {
			e.record(Recoverable, e.line(d.Index), d.Column, d.Message)
		}
	}
}
