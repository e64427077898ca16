// Package rules provides the pluggable cell and row validators used by the
// validation engine.
//
// A [Validator] receives a raw cell value and returns its normalized form, or a
// [*ValidationError] describing why the value is unacceptable. Type validators
// are selected from a closed set of [Kind] values; hooks and row transforms are
// any type implementing the single-method interfaces below.
//
// Every built-in validator passes nil (an empty cell) through unchanged.
// Rejecting empty cells is the job of a hook such as "not_empty".
package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownKind is returned when a type name is not one of the built-in kinds.
	ErrUnknownKind = errors.New("unknown type")

	// ErrUnknownHook is returned by Hook for unregistered hook names.
	ErrUnknownHook = errors.New("unknown hook")
)

// Validator normalizes a single cell value.
type Validator interface {
	Validate(v any) (any, error)
}

// Func adapts an ordinary function to the Validator interface.
type Func func(v any) (any, error)

// Validate calls f(v).
func (f Func) Validate(v any) (any, error) { return f(v) }

// RowTransform inspects or rewrites a whole row. The row holds only bound keys;
// the returned map may contain any subset of them.
type RowTransform interface {
	Transform(row map[string]any) (map[string]any, error)
}

// RowFunc adapts an ordinary function to the RowTransform interface.
type RowFunc func(row map[string]any) (map[string]any, error)

// Transform calls f(row).
func (f RowFunc) Transform(row map[string]any) (map[string]any, error) { return f(row) }

// ValidationError is a data-level failure. Its message is shown to users as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a *ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Kind names a built-in type validator.
type Kind string

const (
	String Kind = "string"
	Int    Kind = "int"
	Float  Kind = "float"
	Date   Kind = "date"
	Time   Kind = "time"
	Bool   Kind = "bool"
	CPF    Kind = "cpf"
	Email  Kind = "email"
	Sex    Kind = "sex"
)

var kinds = map[Kind]Validator{
	String: Func(validateString),
	Int:    Func(validateInt),
	Float:  Func(validateFloat),
	Date:   Func(validateDate),
	Time:   Func(validateTime),
	Bool:   Func(validateBool),
	CPF:    Func(validateCPF),
	Email:  Func(validateEmail),
	Sex:    Func(validateSex),
}

// Lookup returns the validator for k. The empty kind means String.
func Lookup(k Kind) (Validator, error) {
	if k == "" {
		k = String
	}
	v, ok := kinds[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownKind, string(k), strings.Join(kindNames(), ", "))
	}
	return v, nil
}

// ParseKind converts a user-supplied type name, ignoring case and surrounding
// whitespace, into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Lookup(k); err != nil {
		return "", err
	}
	if k == "" {
		k = String
	}
	return k, nil
}

// Kinds lists the built-in kinds in alphabetical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func kindNames() []string {
	ks := Kinds()
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = string(k)
	}
	return names
}
