package rules

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/textnorm"
)

// Ready-made hooks, usable as Column.Before or Column.After.
var (
	// NotEmpty rejects nil and blank strings.
	NotEmpty Validator = Func(notEmpty)

	// Percent turns fractions (<= 1) into percentages: 0.15 becomes 15.
	Percent Validator = Func(percent)

	// Upper and Lower change the case of string values.
	Upper Validator = Func(func(v any) (any, error) { return mapString(v, strings.ToUpper), nil })
	Lower Validator = Func(func(v any) (any, error) { return mapString(v, strings.ToLower), nil })
)

var hooks = map[string]Validator{
	"not_empty": NotEmpty,
	"percent":   Percent,
	"upper":     Upper,
	"lower":     Lower,
}

// Hook returns a named hook for declarative schemas.
func Hook(name string) (Validator, error) {
	h, ok := hooks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownHook, name, strings.Join(HookNames(), ", "))
	}
	return h, nil
}

// HookNames lists the named hooks in alphabetical order.
func HookNames() []string {
	names := make([]string, 0, len(hooks))
	for n := range hooks {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// OneOf accepts only the listed values, compared case- and accent-insensitively.
// The canonical spelling from values is returned.
func OneOf(values ...string) Validator {
	allowed := make(map[string]string, len(values))
	for _, v := range values {
		allowed[textnorm.Fold(v)] = v
	}

	return Func(func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		if out, ok := allowed[textnorm.Fold(fmt.Sprint(v))]; ok {
			return out, nil
		}
		return nil, Invalid("value '%v' is not one of: %s", v, strings.Join(values, ", "))
	})
}

// Chain runs validators in order, stopping at the first failure.
func Chain(vs ...Validator) Validator {
	return Func(func(v any) (any, error) {
		var err error
		for _, fn := range vs {
			if v, err = fn.Validate(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	})
}

func notEmpty(v any) (any, error) {
	if v == nil {
		return nil, Invalid("Empty value")
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, Invalid("Empty value")
	}
	return v, nil
}

func percent(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, Invalid("value '%v' is not a number", v)
	}
	if f <= 1 {
		f = math.Round(f*100*1e6) / 1e6
	}
	return f, nil
}

func mapString(v any, fn func(string) string) any {
	if s, ok := v.(string); ok {
		return fn(s)
	}
	return v
}
