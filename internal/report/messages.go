// Package report turns run failures into user-facing messages and renders
// outcomes as JSON.
//
// # Error Codes Reference
//
// Every message carries a code users can quote to support staff.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Validation failed: The spreadsheet has validation errors
//	         Action: Fix the listed cells, or force the export to accept them
//	         Patterns: "validation errors present"
//
//	VAL002 - Missing column: A required column was not found in the header
//	         Action: Check the header row and the column names
//	         Patterns: "required column"
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Unknown schema: The requested layout is not registered
//	SCH002 - Unknown type: A column uses a type that does not exist
//	SCH003 - Unknown hook: A column uses a hook that does not exist
//	SCH004 - Invalid schema: The layout definition is malformed
//	SCH005 - Duplicate schema: Two layouts share the same key
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Invalid workbook
//	FILE004 - Unsupported format
//	FILE005 - Sheet not found
//	FILE006 - Empty file
//	FILE007 - No file
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many validations in progress
//	RUN002 - Request cancelled
//	RUN003 - Request timeout
//	RUN004 - Export failed: The database rejected the rows
//	RUN005 - Export disabled: No database is configured
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns come first.
package report

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "validation errors present",
		msg: UserMessage{
			Message: "The spreadsheet has validation errors",
			Action:  "Fix the listed cells, or force the export to accept them",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required column",
		msg: UserMessage{
			Message: "A required column was not found in the header",
			Action:  "Check the header row and the column names",
			Code:    "VAL002",
		},
	},

	// Schema
	{
		pattern: "unknown schema",
		msg: UserMessage{
			Message: "The requested spreadsheet layout does not exist",
			Action:  "Pick one of the available schemas",
			Code:    "SCH001",
		},
	},
	{
		pattern: "unknown type",
		msg: UserMessage{
			Message: "A column uses a type that does not exist",
			Action:  "Fix the column type in the schema definition",
			Code:    "SCH002",
		},
	},
	{
		pattern: "unknown hook",
		msg: UserMessage{
			Message: "A column uses a hook that does not exist",
			Action:  "Fix the before/after hook names in the schema definition",
			Code:    "SCH003",
		},
	},
	{
		pattern: "invalid schema definition",
		msg: UserMessage{
			Message: "The schema definition is malformed",
			Action:  "Correct the schema file and reload",
			Code:    "SCH004",
		},
	},
	{
		pattern: "schema already registered",
		msg: UserMessage{
			Message: "Two schemas share the same key",
			Action:  "Rename one of the schemas",
			Code:    "SCH005",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the spreadsheet into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Export the sheet again as CSV (comma separated)",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "File is not a valid Excel workbook",
			Action:  "Save the file as .xlsx and try again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "No sheet in the workbook matches the expected name",
			Action:  "Rename the sheet or pick it explicitly",
			Code:    "FILE005",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no header row",
			Action:  "Check the header row setting and the file contents",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to validate",
			Code:    "FILE007",
		},
	},

	// Run
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System is busy processing other validations",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN003",
		},
	},
	{
		pattern: "export disabled",
		msg: UserMessage{
			Message: "Exporting is not enabled on this server",
			Action:  "Validate without exporting, or configure DATABASE_URL",
			Code:    "RUN005",
		},
	},
	{
		pattern: "export failed",
		msg: UserMessage{
			Message: "The validated rows could not be saved",
			Action:  "Check the database connection and target table",
			Code:    "RUN004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
