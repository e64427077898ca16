package engine

import (
	"errors"
	"fmt"
)

// ErrValidationFailed is returned by Result when errors were recorded and the
// caller did not force the export.
var ErrValidationFailed = errors.New("validation errors present")

// Severity classifies an ErrorRecord.
type Severity int

const (
	// Recoverable errors are localized to a cell, row or key value.
	Recoverable Severity = iota
	// Critical errors mean a required field could not be bound.
	Critical
)

func (s Severity) String() string {
	switch s {
	case Critical:
		return "CRITICAL"
	case Recoverable:
		return "RECOVERABLE"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText renders the severity by name in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CRITICAL":
		*s = Critical
	case "RECOVERABLE":
		*s = Recoverable
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// ErrorRecord is one validation failure.
type ErrorRecord struct {
	Severity Severity `json:"type"`
	Line     int      `json:"row,omitempty"`    // 1-based document line, 0 when unknown
	Column   string   `json:"column,omitempty"` // Logical key, empty for row and schema errors
	Message  string   `json:"message"`
}

// String formats the record the way PrintErrors writes it.
func (r ErrorRecord) String() string {
	switch {
	case r.Line == 0 && r.Column == "":
		return fmt.Sprintf("%s!: %s", r.Severity, r.Message)
	case r.Line == 0:
		return fmt.Sprintf("%s! Column %s: %s", r.Severity, r.Column, r.Message)
	case r.Column == "":
		return fmt.Sprintf("%s! in line %d: %s", r.Severity, r.Line, r.Message)
	default:
		return fmt.Sprintf("%s! in line %d, Column %s: %s", r.Severity, r.Line, r.Column, r.Message)
	}
}

// Duplicate is one repeated key value found by DetectDuplicates.
type Duplicate struct {
	Message string
	Column  string
	Index   int // Row index, not yet translated to a document line
}

// DuplicateError carries every duplicate found in one DetectDuplicates call.
type DuplicateError struct {
	Duplicates []Duplicate
}

func (e *DuplicateError) Error() string {
	if len(e.Duplicates) == 1 {
		return e.Duplicates[0].Message
	}
	return fmt.Sprintf("%d duplicated values", len(e.Duplicates))
}
