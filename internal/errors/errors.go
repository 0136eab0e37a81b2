package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"climateprep/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Predefined error codes
const (
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeParseError        = "PARSE_ERROR"
	CodeSchemaError       = "SCHEMA_ERROR"
	CodeUploadTooLarge    = "UPLOAD_TOO_LARGE"
	CodeNotFound          = "NOT_FOUND"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeCanceled          = "CANCELED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// CodeOf returns the code of the outermost AppError in the chain. Errors that
// are not AppErrors are classified by the domain sentinel they wrap.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, core.ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case stderrors.Is(err, core.ErrParse):
		return CodeParseError
	case stderrors.Is(err, core.ErrSchema):
		return CodeSchemaError
	case stderrors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, core.ErrInvalidSchema):
		return CodeValidationError
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternalError
	}
}

// FromPipeline converts a pipeline error into an AppError carrying its code
func FromPipeline(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: CodeOf(err), Message: err.Error(), Cause: err}
}

// HTTPStatus maps an error code onto a response status
func HTTPStatus(code string) int {
	switch code {
	case CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case CodeParseError:
		return http.StatusUnprocessableEntity
	case CodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	return CodeOf(err) == code
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Cause: core.ErrNotFound}
}

func UploadTooLarge(size, limit int64) *AppError {
	return New(CodeUploadTooLarge, fmt.Sprintf("upload of %d bytes exceeds the %d byte limit", size, limit))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
