// Package apperr defines the error taxonomy shared by services and the HTTP
// layer. Errors are built with oops and carry a stable code; field-level
// messages travel as FieldErrors wrapped inside the oops error.
package apperr

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// Error codes.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeStorage            = "STORAGE_FAILURE"
)

// GeneralField is the key used when an error is not tied to a form field.
const GeneralField = "general"

// User-facing messages.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgStorage            = "a database error occurred, please try again later"
	MsgUserNotFound       = "user not found"
	MsgEmailTaken         = "this email address is already in use"
	MsgUsernameTaken      = "this username is already in use"
)

// FieldErrors maps a form field to a user-correctable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// Validation returns a VALIDATION_FAILED error carrying fields.
func Validation(fields FieldErrors) error {
	return oops.Code(CodeValidation).Wrap(fields)
}

// Conflict returns a CONFLICT error keyed to field.
func Conflict(field, msg string) error {
	return oops.Code(CodeConflict).
		With("field", field).
		Wrap(FieldErrors{field: msg})
}

// NotFound returns a NOT_FOUND error with a general message.
func NotFound(msg string) error {
	return oops.Code(CodeNotFound).Wrap(FieldErrors{GeneralField: msg})
}

// InvalidCredentials returns the single authentication failure used for
// both unknown accounts and wrong passwords.
func InvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(FieldErrors{GeneralField: MsgInvalidCredentials})
}

// Storage logs cause in full and returns a STORAGE_FAILURE error that does
// not wrap it.
func Storage(logger *slog.Logger, operation string, cause error) error {
	LogError(logger, "storage failure", oops.With("operation", operation).Wrap(cause))
	return oops.Code(CodeStorage).
		With("operation", operation).
		Wrap(FieldErrors{GeneralField: MsgStorage})
}

// Code returns the oops code of err, or "" when err carries none.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// Fields extracts the FieldErrors wrapped in err. Errors outside the
// taxonomy collapse to the generic storage message.
func Fields(err error) FieldErrors {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields
	}
	return FieldErrors{GeneralField: MsgStorage}
}

// HTTPStatus maps err to the status code sent to clients.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// LogError logs an error with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Error(msg, "error", err)
	}
}
