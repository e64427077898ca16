package web

// errors.go turns service errors into JSON responses.
//
// The technical error is logged with the request ID; the client gets the
// mapped user message and its code.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/report"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	"github.com/JonMunkholm/sheetcheck/internal/service"
	"github.com/JonMunkholm/sheetcheck/internal/table"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message. A zero status is
// derived from err.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	ue := report.NewUserError(err)
	msg := ue.User

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", msg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps setup errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, schema.ErrUnknownSchema):
		return http.StatusNotFound
	case errors.Is(err, table.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, table.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrExportDisabled):
		return http.StatusConflict
	case errors.Is(err, service.ErrExportFailed):
		return http.StatusBadGateway
	case report.IsUserFacing(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// statusForOutcome maps a finished run to its HTTP status.
func statusForOutcome(out *service.Outcome) int {
	switch out.Status {
	case service.StatusCritical:
		return http.StatusBadRequest
	case service.StatusInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
